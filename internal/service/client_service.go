package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-brokerage-crm/internal/authz"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"

	"github.com/google/uuid"
)

var ErrClientCodeExists = errors.New("client code already exists")

type ClientService interface {
	List(actor model.Identity, filter repository.ClientFilter) ([]model.Client, int64, error)
	Get(actor model.Identity, id uuid.UUID) (*model.Client, error)
	Create(actor model.Identity, req *ClientRequest) (*model.Client, error)
	Update(actor model.Identity, id uuid.UUID, req *ClientRequest) (*model.Client, error)
	Delete(actor model.Identity, id uuid.UUID) error
	ExportCSV(w io.Writer, filter repository.ClientFilter) error
}

type ClientRequest struct {
	ClientCode     string     `json:"client_code" validate:"required,max=32"`
	Name           string     `json:"name" validate:"required,max=255"`
	Email          string     `json:"email" validate:"omitempty,email"`
	Phone          string     `json:"phone" validate:"omitempty,max=20"`
	PAN            string     `json:"pan" validate:"omitempty,len=10,alphanum"`
	Segment        string     `json:"segment" validate:"required,oneof=EQUITY MF BOTH"`
	Status         string     `json:"status" validate:"omitempty,oneof=ACTIVE DORMANT INACTIVE"`
	Notes          string     `json:"notes"`
	EquityDealerID *uuid.UUID `json:"equity_dealer_id"`
	MFDealerID     *uuid.UUID `json:"mf_dealer_id"`
}

type clientService struct {
	clientRepo   repository.ClientRepository
	employeeRepo repository.EmployeeRepository
}

func NewClientService(clientRepo repository.ClientRepository, employeeRepo repository.EmployeeRepository) ClientService {
	return &clientService{clientRepo: clientRepo, employeeRepo: employeeRepo}
}

// seesAllClients reports whether actor works on the whole book rather than
// only on assigned clients.
func seesAllClients(actor model.Identity) bool {
	return actor.HoldsAny(model.RoleSuperAdmin, model.RoleAdmin, model.RoleBackOffice)
}

func (s *clientService) List(actor model.Identity, filter repository.ClientFilter) ([]model.Client, int64, error) {
	if !seesAllClients(actor) {
		filter.DealerID = &actor.ID
	}
	return s.clientRepo.FindAll(filter)
}

func (s *clientService) Get(actor model.Identity, id uuid.UUID) (*model.Client, error) {
	client, err := s.clientRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	// Unassigned clients are invisible to dealers, not forbidden.
	if !seesAllClients(actor) && !client.AssignedTo(actor.ID) {
		return nil, ErrNotFound
	}
	return client, nil
}

// checkDealer verifies that id, when set, is an active employee holding role.
func (s *clientService) checkDealer(id *uuid.UUID, role model.Role) error {
	if id == nil {
		return nil
	}
	dealer, err := s.employeeRepo.FindByID(*id)
	if err != nil {
		return invalid(fmt.Sprintf("Validation failed: %s not found", strings.ToLower(role.Label())))
	}
	if !dealer.IsActive || !dealer.Identity().Holds(role) {
		return invalid(fmt.Sprintf("Validation failed: assigned employee is not an active %s", strings.ToLower(role.Label())))
	}
	return nil
}

func (s *clientService) apply(client *model.Client, req *ClientRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	if err := s.checkDealer(req.EquityDealerID, model.RoleEquityDealer); err != nil {
		return err
	}
	if err := s.checkDealer(req.MFDealerID, model.RoleMFDealer); err != nil {
		return err
	}
	client.ClientCode = strings.ToUpper(strings.TrimSpace(req.ClientCode))
	client.Name = strings.TrimSpace(req.Name)
	client.Email = model.NormalizeEmail(req.Email)
	client.Phone = req.Phone
	client.PAN = strings.ToUpper(req.PAN)
	client.Segment = model.Segment(req.Segment)
	client.Status = req.Status
	if client.Status == "" {
		client.Status = model.ClientActive
	}
	client.Notes = req.Notes
	client.EquityDealerID = req.EquityDealerID
	client.MFDealerID = req.MFDealerID
	client.EquityDealer, client.MFDealer = nil, nil
	return nil
}

func (s *clientService) Create(actor model.Identity, req *ClientRequest) (*model.Client, error) {
	if err := authz.Require(&actor, authz.Admins...); err != nil {
		return nil, err
	}
	client := &model.Client{}
	if err := s.apply(client, req); err != nil {
		return nil, err
	}
	if err := s.codeFree(client.ClientCode); err != nil {
		return nil, err
	}
	client.CreatedBy = actorID(actor.ID)
	client.UpdatedBy = actorID(actor.ID)
	if err := s.clientRepo.Create(client); err != nil {
		return nil, duplicate(err, ErrClientCodeExists)
	}
	return client, nil
}

func (s *clientService) codeFree(code string) error {
	existing, err := s.clientRepo.FindByCodes([]string{code})
	if err != nil {
		return fmt.Errorf("lookup client code: %w", err)
	}
	if len(existing) > 0 {
		return ErrClientCodeExists
	}
	return nil
}

func (s *clientService) Update(actor model.Identity, id uuid.UUID, req *ClientRequest) (*model.Client, error) {
	if err := authz.Require(&actor, authz.Admins...); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	oldCode := client.ClientCode
	if err := s.apply(client, req); err != nil {
		return nil, err
	}
	if client.ClientCode != oldCode {
		if err := s.codeFree(client.ClientCode); err != nil {
			return nil, err
		}
	}
	client.UpdatedBy = actorID(actor.ID)
	if err := s.clientRepo.Update(client); err != nil {
		return nil, duplicate(err, ErrClientCodeExists)
	}
	return client, nil
}

func (s *clientService) Delete(actor model.Identity, id uuid.UUID) error {
	if err := authz.Require(&actor, authz.SuperAdmin...); err != nil {
		return err
	}
	return notFound(s.clientRepo.Delete(id, actorID(actor.ID)))
}

var clientCSVHeader = []string{"client_code", "name", "email", "phone", "pan", "segment", "status", "equity_dealer", "mf_dealer"}

func (s *clientService) ExportCSV(w io.Writer, filter repository.ClientFilter) error {
	filter.Limit, filter.Offset = 0, 0
	clients, _, err := s.clientRepo.FindAll(filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(clientCSVHeader); err != nil {
		return err
	}
	for _, c := range clients {
		row := []string{c.ClientCode, c.Name, c.Email, c.Phone, c.PAN, string(c.Segment), c.Status, dealerName(c.EquityDealer), dealerName(c.MFDealer)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func dealerName(e *model.Employee) string {
	if e == nil {
		return ""
	}
	return e.Name
}
