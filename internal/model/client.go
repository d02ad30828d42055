package model

import "github.com/google/uuid"

// Segment is the product line a client trades in.
type Segment string

const (
	SegmentEquity Segment = "EQUITY"
	SegmentMF     Segment = "MF"
	SegmentBoth   Segment = "BOTH"
)

// ClientStatus values
const (
	ClientActive   = "ACTIVE"
	ClientDormant  = "DORMANT"
	ClientInactive = "INACTIVE"
)

// Client is a brokerage customer managed in the CRM.
type Client struct {
	BaseModel
	ClientCode string  `gorm:"type:varchar(32);not null;uniqueIndex:idx_clients_client_code_live,where:deleted_at IS NULL" json:"client_code" validate:"required,max=32"`
	Name       string  `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Email      string  `gorm:"type:varchar(255)" json:"email,omitempty" validate:"omitempty,email"`
	Phone      string  `gorm:"type:varchar(20)" json:"phone,omitempty"`
	PAN        string  `gorm:"type:varchar(10)" json:"pan,omitempty" validate:"omitempty,len=10,alphanum"`
	Segment    Segment `gorm:"type:varchar(10);not null" json:"segment" validate:"required,oneof=EQUITY MF BOTH"`
	Status     string  `gorm:"type:varchar(16);default:'ACTIVE'" json:"status" validate:"omitempty,oneof=ACTIVE DORMANT INACTIVE"`
	Notes      string  `gorm:"type:text" json:"notes,omitempty"`

	EquityDealerID *uuid.UUID `gorm:"type:uuid;index" json:"equity_dealer_id,omitempty"`
	MFDealerID     *uuid.UUID `gorm:"type:uuid;index" json:"mf_dealer_id,omitempty"`
	EquityDealer   *Employee  `gorm:"foreignKey:EquityDealerID" json:"equity_dealer,omitempty" validate:"-"`
	MFDealer       *Employee  `gorm:"foreignKey:MFDealerID" json:"mf_dealer,omitempty" validate:"-"`
}

// AssignedTo reports whether the employee is one of the client's dealers.
func (c *Client) AssignedTo(employeeID uuid.UUID) bool {
	return (c.EquityDealerID != nil && *c.EquityDealerID == employeeID) ||
		(c.MFDealerID != nil && *c.MFDealerID == employeeID)
}
