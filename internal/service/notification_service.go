package service

import (
	"log"
	"time"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/ws"

	"github.com/google/uuid"
)

// Notifier pushes live events to connected employees. *ws.Hub implements it.
type Notifier interface {
	Notify(userID uuid.UUID, ev ws.Event)
}

type NotificationList struct {
	Items  []model.Notification `json:"items"`
	Unread int64                `json:"unread"`
}

type NotificationService interface {
	Send(n *model.Notification) error
	SendMany(ns []model.Notification) error
	List(recipientID uuid.UUID, unreadOnly bool, limit int) (*NotificationList, error)
	MarkRead(recipientID, id uuid.UUID) error
	MarkAllRead(recipientID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	notifier Notifier
	now      func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, notifier Notifier) NotificationService {
	return &notificationService{repo: repo, notifier: notifier, now: time.Now}
}

// Send stores n and then pushes it; the stored row is the source of truth.
func (s *notificationService) Send(n *model.Notification) error {
	if n.Kind == "" {
		n.Kind = model.NotifyGeneral
	}
	if err := s.repo.Create(n); err != nil {
		return err
	}
	s.push(*n)
	return nil
}

func (s *notificationService) SendMany(ns []model.Notification) error {
	for i := range ns {
		if ns[i].Kind == "" {
			ns[i].Kind = model.NotifyGeneral
		}
	}
	if err := s.repo.CreateMany(ns); err != nil {
		return err
	}
	for _, n := range ns {
		s.push(n)
	}
	return nil
}

func (s *notificationService) push(n model.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(n.RecipientID, ws.Event{Type: "notification", Data: n})
}

func (s *notificationService) List(recipientID uuid.UUID, unreadOnly bool, limit int) (*NotificationList, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.repo.FindForRecipient(recipientID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(recipientID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Notification{}
	}
	return &NotificationList{Items: items, Unread: unread}, nil
}

func (s *notificationService) MarkRead(recipientID, id uuid.UUID) error {
	return notFound(s.repo.MarkRead(id, recipientID, s.now()))
}

func (s *notificationService) MarkAllRead(recipientID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(recipientID, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("notifications marked read user=%s count=%d", recipientID, n)
	}
	return n, nil
}
