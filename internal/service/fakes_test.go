package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/ws"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(b *model.BaseModel) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
}

type memEmployees struct {
	byID        map[uuid.UUID]*model.Employee
	lastLoginAt map[uuid.UUID]time.Time
	lookupErr   error
	createErr   error
}

func newMemEmployees(es ...*model.Employee) *memEmployees {
	m := &memEmployees{byID: map[uuid.UUID]*model.Employee{}, lastLoginAt: map[uuid.UUID]time.Time{}}
	for _, e := range es {
		ensureID(&e.BaseModel)
		m.byID[e.ID] = e
	}
	return m
}

func (m *memEmployees) FindByEmail(email string) (*model.Employee, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, e := range m.byID {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memEmployees) FindByID(id uuid.UUID) (*model.Employee, error) {
	if e, ok := m.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memEmployees) FindAll(f repository.EmployeeFilter) ([]model.Employee, error) {
	var out []model.Employee
	for _, e := range m.byID {
		if f.Role != "" && !e.Identity().Holds(f.Role) {
			continue
		}
		if f.ActiveOnly && !e.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memEmployees) Create(e *model.Employee) error {
	if m.createErr != nil {
		return m.createErr
	}
	ensureID(&e.BaseModel)
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEmployees) Update(e *model.Employee) error {
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEmployees) Delete(id uuid.UUID, _ string) error {
	if _, ok := m.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memEmployees) UpdatePassword(id uuid.UUID, hash string) error {
	e, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Password = hash
	return nil
}

func (m *memEmployees) UpdateLastLogin(id uuid.UUID, at time.Time) error {
	m.lastLoginAt[id] = at
	return nil
}

func (m *memEmployees) Count() (int64, error) { return int64(len(m.byID)), nil }

type memOTPs struct {
	rows       []*model.PasswordResetOTP
	replaceErr error
}

func (m *memOTPs) Replace(o *model.PasswordResetOTP) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.EmployeeID != o.EmployeeID || r.ConsumedAt != nil {
			kept = append(kept, r)
		}
	}
	ensureID(&o.BaseModel)
	m.rows = append(kept, o)
	return nil
}

func (m *memOTPs) FindLatest(employeeID uuid.UUID) (*model.PasswordResetOTP, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if r := m.rows[i]; r.EmployeeID == employeeID && r.ConsumedAt == nil {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOTPs) find(id uuid.UUID) *model.PasswordResetOTP {
	for _, r := range m.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memOTPs) IncrementAttempts(id uuid.UUID) error {
	if r := m.find(id); r != nil {
		r.Attempts++
	}
	return nil
}

func (m *memOTPs) Consume(id uuid.UUID, at time.Time) error {
	r := m.find(id)
	if r == nil || r.ConsumedAt != nil {
		return gorm.ErrRecordNotFound
	}
	r.ConsumedAt = &at
	return nil
}

type memClients struct {
	byID      map[uuid.UUID]*model.Client
	lookupErr error
	createErr error
}

func newMemClients(cs ...*model.Client) *memClients {
	m := &memClients{byID: map[uuid.UUID]*model.Client{}}
	for _, c := range cs {
		ensureID(&c.BaseModel)
		m.byID[c.ID] = c
	}
	return m
}

func (m *memClients) FindAll(f repository.ClientFilter) ([]model.Client, int64, error) {
	var out []model.Client
	for _, c := range m.byID {
		if f.DealerID != nil && !c.AssignedTo(*f.DealerID) {
			continue
		}
		if f.Segment != "" && c.Segment != f.Segment {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := int64(len(out))
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memClients) FindByID(id uuid.UUID) (*model.Client, error) {
	if c, ok := m.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memClients) FindByCodes(codes []string) ([]model.Client, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	var out []model.Client
	for _, c := range m.byID {
		for _, code := range codes {
			if c.ClientCode == code {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (m *memClients) Create(c *model.Client) error {
	if m.createErr != nil {
		return m.createErr
	}
	ensureID(&c.BaseModel)
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memClients) Update(c *model.Client) error {
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memClients) Delete(id uuid.UUID, _ string) error {
	if _, ok := m.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memClients) CountBySegment() (map[model.Segment]int64, error) {
	out := map[model.Segment]int64{}
	for _, c := range m.byID {
		out[c.Segment]++
	}
	return out, nil
}

type memTasks struct {
	byID map[uuid.UUID]*model.Task
}

func newMemTasks() *memTasks { return &memTasks{byID: map[uuid.UUID]*model.Task{}} }

func (m *memTasks) Create(t *model.Task) error {
	ensureID(&t.BaseModel)
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *memTasks) FindByID(id uuid.UUID) (*model.Task, error) {
	if t, ok := m.byID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTasks) FindAll(f repository.TaskFilter) ([]model.Task, error) {
	var out []model.Task
	for _, t := range m.byID {
		if f.AssigneeID != nil && t.AssigneeID != *f.AssigneeID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memTasks) UpdateStatus(id uuid.UUID, status model.TaskStatus, completedAt *time.Time, _ string) error {
	t, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.Status = status
	t.CompletedAt = completedAt
	return nil
}

func (m *memTasks) Counts(assignee *uuid.UUID, _ time.Time) (*repository.TaskCounts, error) {
	c := &repository.TaskCounts{}
	for _, t := range m.byID {
		if assignee != nil && t.AssigneeID != *assignee {
			continue
		}
		switch t.Status {
		case model.TaskPending:
			c.Pending++
		case model.TaskInProgress:
			c.InProgress++
		case model.TaskCompleted:
			c.Completed++
		case model.TaskCancelled:
			c.Cancelled++
		}
	}
	return c, nil
}

type memNotifications struct {
	rows []*model.Notification
}

func (m *memNotifications) Create(n *model.Notification) error {
	ensureID(&n.BaseModel)
	cp := *n
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memNotifications) CreateMany(ns []model.Notification) error {
	for i := range ns {
		if err := m.Create(&ns[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memNotifications) FindForRecipient(recipient uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for i := len(m.rows) - 1; i >= 0; i-- {
		n := m.rows[i]
		if n.RecipientID != recipient || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(id, recipient uuid.UUID, at time.Time) error {
	for _, n := range m.rows {
		if n.ID == id && n.RecipientID == recipient {
			n.IsRead, n.ReadAt = true, &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memNotifications) MarkAllRead(recipient uuid.UUID, at time.Time) (int64, error) {
	var n int64
	for _, row := range m.rows {
		if row.RecipientID == recipient && !row.IsRead {
			row.IsRead, row.ReadAt = true, &at
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) CountUnread(recipient uuid.UUID) (int64, error) {
	var n int64
	for _, row := range m.rows {
		if row.RecipientID == recipient && !row.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) For(recipient uuid.UUID) []model.Notification {
	var out []model.Notification
	for _, row := range m.rows {
		if row.RecipientID == recipient {
			out = append(out, *row)
		}
	}
	return out
}

type memBrokerage struct {
	uploads []model.BrokerageUpload
	records []model.BrokerageRecord
}

func (m *memBrokerage) CreateUpload(u *model.BrokerageUpload, records []model.BrokerageRecord) error {
	ensureID(&u.BaseModel)
	for i := range records {
		records[i].UploadID = u.ID
	}
	m.uploads = append(m.uploads, *u)
	m.records = append(m.records, records...)
	return nil
}

func (m *memBrokerage) FindUploads(int) ([]model.BrokerageUpload, error) { return m.uploads, nil }

func (m *memBrokerage) match(f repository.BrokerageFilter, r model.BrokerageRecord) bool {
	if r.TradeDate.Before(f.From) || r.TradeDate.After(f.To) {
		return false
	}
	if f.DealerID != nil && (r.DealerID == nil || *r.DealerID != *f.DealerID) {
		return false
	}
	return f.Segment == "" || r.Segment == f.Segment
}

func (m *memBrokerage) FindRecords(f repository.BrokerageFilter) ([]model.BrokerageRecord, error) {
	var out []model.BrokerageRecord
	for _, r := range m.records {
		if m.match(f, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memBrokerage) Summary(f repository.BrokerageFilter) ([]model.BrokerageSummary, error) {
	idx := map[string]int{}
	var out []model.BrokerageSummary
	for _, r := range m.records {
		if !m.match(f, r) {
			continue
		}
		key := r.ClientCode + "/" + string(r.Segment)
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, model.BrokerageSummary{ClientCode: r.ClientCode, Segment: string(r.Segment)})
		}
		out[i].Trades++
		out[i].Amount += r.Amount
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out, nil
}

func (m *memBrokerage) Total(f repository.BrokerageFilter) (int64, error) {
	var t int64
	for _, r := range m.records {
		if m.match(f, r) {
			t += r.Amount
		}
	}
	return t, nil
}

func (m *memBrokerage) Daily(repository.BrokerageFilter) ([]repository.DailyBrokerage, error) {
	return nil, nil
}

type memDocuments struct {
	rows []*model.Document
}

func (m *memDocuments) Create(d *model.Document) error {
	ensureID(&d.BaseModel)
	cp := *d
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memDocuments) FindByID(id uuid.UUID) (*model.Document, error) {
	for _, d := range m.rows {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memDocuments) FindByClient(clientID uuid.UUID) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.rows {
		if d.ClientID == clientID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDocuments) FindAll(category string) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.rows {
		if category == "" || d.Category == category {
			out = append(out, *d)
		}
	}
	return out, nil
}

type sentMail struct {
	to, code string
	expires  time.Time
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendPasswordOTP(to, _, code string, expires time.Time) error {
	f.sent = append(f.sent, sentMail{to: to, code: code, expires: expires})
	return nil
}

func (f *fakeMailer) Enabled() bool { return true }

type fakeNotifier struct {
	mu     sync.Mutex
	events map[uuid.UUID][]ws.Event
}

func (f *fakeNotifier) Notify(userID uuid.UUID, ev ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = map[uuid.UUID][]ws.Event{}
	}
	f.events[userID] = append(f.events[userID], ev)
}

func (f *fakeNotifier) count(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events[userID])
}

func employee(name, email string, role model.Role, secondary ...model.Role) *model.Employee {
	e := &model.Employee{Name: name, Email: email, Role: role, IsActive: true}
	if len(secondary) > 0 {
		sr := secondary[0]
		e.SecondaryRole = &sr
	}
	e.ID = uuid.New()
	if err := e.SetPassword("correct-horse"); err != nil {
		panic(err)
	}
	return e
}
