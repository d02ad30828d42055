package service

import (
	"time"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
)

type DashboardStats struct {
	Employees        int64                       `json:"employees"`
	ClientsBySegment map[model.Segment]int64     `json:"clients_by_segment"`
	Tasks            *repository.TaskCounts      `json:"tasks"`
	BrokerageMTD     int64                       `json:"brokerage_mtd"`
	BrokerageTrend   []repository.DailyBrokerage `json:"brokerage_trend"`
	TopClients       []model.BrokerageSummary    `json:"top_clients"`
	UnreadForViewer  int64                       `json:"unread_notifications"`
}

// MySummary is the landing-page summary for the caller's active role.
type MySummary struct {
	ActiveRole   model.Role             `json:"active_role"`
	Dashboard    string                 `json:"dashboard"`
	Tasks        *repository.TaskCounts `json:"tasks"`
	Unread       int64                  `json:"unread_notifications"`
	Clients      int64                  `json:"clients"`
	BrokerageMTD int64                  `json:"brokerage_mtd"`
	Segment      model.Segment          `json:"segment,omitempty"`
}

type DashboardService interface {
	GetStats(viewer model.Identity, trendDays int) (*DashboardStats, error)
	GetMine(viewer model.Identity, activeRole model.Role) (*MySummary, error)
}

type dashboardService struct {
	employeeRepo     repository.EmployeeRepository
	clientRepo       repository.ClientRepository
	taskRepo         repository.TaskRepository
	brokerageRepo    repository.BrokerageRepository
	notificationRepo repository.NotificationRepository
	now              func() time.Time
}

func NewDashboardService(
	employeeRepo repository.EmployeeRepository,
	clientRepo repository.ClientRepository,
	taskRepo repository.TaskRepository,
	brokerageRepo repository.BrokerageRepository,
	notificationRepo repository.NotificationRepository,
) DashboardService {
	return &dashboardService{
		employeeRepo:     employeeRepo,
		clientRepo:       clientRepo,
		taskRepo:         taskRepo,
		brokerageRepo:    brokerageRepo,
		notificationRepo: notificationRepo,
		now:              time.Now,
	}
}

func monthToDate(now time.Time) repository.BrokerageFilter {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return repository.BrokerageFilter{From: start, To: now}
}

func (s *dashboardService) GetStats(viewer model.Identity, trendDays int) (*DashboardStats, error) {
	if trendDays <= 0 || trendDays > 366 {
		trendDays = 30
	}
	now := s.now()
	stats := &DashboardStats{}
	var err error

	if stats.Employees, err = s.employeeRepo.Count(); err != nil {
		return nil, err
	}
	if stats.ClientsBySegment, err = s.clientRepo.CountBySegment(); err != nil {
		return nil, err
	}
	if stats.Tasks, err = s.taskRepo.Counts(nil, now); err != nil {
		return nil, err
	}

	mtd := monthToDate(now)
	if stats.BrokerageMTD, err = s.brokerageRepo.Total(mtd); err != nil {
		return nil, err
	}
	if stats.TopClients, err = s.brokerageRepo.Summary(mtd); err != nil {
		return nil, err
	}
	if len(stats.TopClients) > 10 {
		stats.TopClients = stats.TopClients[:10]
	}

	trend := repository.BrokerageFilter{From: now.AddDate(0, 0, -trendDays), To: now}
	if stats.BrokerageTrend, err = s.brokerageRepo.Daily(trend); err != nil {
		return nil, err
	}
	if stats.UnreadForViewer, err = s.notificationRepo.CountUnread(viewer.ID); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *dashboardService) GetMine(viewer model.Identity, activeRole model.Role) (*MySummary, error) {
	if !viewer.Holds(activeRole) {
		activeRole = viewer.PrimaryRole
	}
	now := s.now()
	sum := &MySummary{ActiveRole: activeRole, Dashboard: model.DefaultDashboard(activeRole)}
	var err error

	if sum.Tasks, err = s.taskRepo.Counts(&viewer.ID, now); err != nil {
		return nil, err
	}
	if sum.Unread, err = s.notificationRepo.CountUnread(viewer.ID); err != nil {
		return nil, err
	}

	mtd := monthToDate(now)
	switch activeRole {
	case model.RoleEquityDealer, model.RoleMFDealer:
		sum.Segment = model.SegmentEquity
		if activeRole == model.RoleMFDealer {
			sum.Segment = model.SegmentMF
		}
		if _, sum.Clients, err = s.clientRepo.FindAll(repository.ClientFilter{DealerID: &viewer.ID, Limit: 1}); err != nil {
			return nil, err
		}
		mtd.DealerID = &viewer.ID
		mtd.Segment = sum.Segment
		if sum.BrokerageMTD, err = s.brokerageRepo.Total(mtd); err != nil {
			return nil, err
		}
	case model.RoleSuperAdmin, model.RoleAdmin, model.RoleBackOffice:
		if _, sum.Clients, err = s.clientRepo.FindAll(repository.ClientFilter{Limit: 1}); err != nil {
			return nil, err
		}
		if activeRole != model.RoleBackOffice {
			if sum.BrokerageMTD, err = s.brokerageRepo.Total(mtd); err != nil {
				return nil, err
			}
		}
	}
	return sum, nil
}
