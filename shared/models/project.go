package models

import (
	"time"
)

// ItemStatus is the fixed procurement/installation progression for an item.
type ItemStatus string

const (
	ItemStatusNotStarted   ItemStatus = "not_started"
	ItemStatusPurchased    ItemStatus = "purchased"
	ItemStatusInstallation ItemStatus = "installation"
	ItemStatusInstalled    ItemStatus = "installed"
	ItemStatusDelivered    ItemStatus = "delivered"
)

// itemStatusOrder fixes the legal progression. An item may only move forward.
var itemStatusOrder = map[ItemStatus]int{
	ItemStatusNotStarted:   0,
	ItemStatusPurchased:    1,
	ItemStatusInstallation: 2,
	ItemStatusInstalled:    3,
	ItemStatusDelivered:    4,
}

// IsValid reports whether s is a known item status.
func (s ItemStatus) IsValid() bool {
	_, ok := itemStatusOrder[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next follows the
// progression. Re-asserting the current status is allowed.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	a, ok1 := itemStatusOrder[s]
	b, ok2 := itemStatusOrder[next]
	return ok1 && ok2 && b >= a
}

// Project is a studio engagement. It owns an ordered list of divisions.
type Project struct {
	ID          string     `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath  string     `json:"-" gorm:"type:varchar(255);not null;index"`
	Name        string     `json:"name" gorm:"not null"`
	ClientName  string     `json:"client_name"`
	Address     string     `json:"address"`
	Description string     `json:"description" gorm:"type:text"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Divisions []Division `json:"divisions,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// Division is a section of a project (e.g. kitchen, facade). It owns items.
type Division struct {
	ID         string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string    `json:"-" gorm:"type:varchar(255);not null;index"`
	ProjectID  string    `json:"project_id" gorm:"type:varchar(64);not null;index"`
	Name       string    `json:"name" gorm:"not null"`
	// Position orders divisions within their project.
	Position  int       `json:"position" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []Item `json:"items,omitempty" gorm:"foreignKey:DivisionID"`
}

func (Division) TableName() string {
	return "divisions"
}

// Item belongs to exactly one division, which belongs to exactly one project.
type Item struct {
	ID         string     `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string     `json:"-" gorm:"type:varchar(255);not null;index"`
	ProjectID  string     `json:"project_id" gorm:"type:varchar(64);not null;index"`
	DivisionID string     `json:"division_id" gorm:"type:varchar(64);not null;index"`
	Name       string     `json:"name" gorm:"not null"`
	Quantity   float64    `json:"quantity" gorm:"default:0"`
	UnitRate   float64    `json:"unit_rate" gorm:"default:0"`
	Priority   int        `json:"priority" gorm:"default:0"`
	Status     ItemStatus `json:"status" gorm:"type:varchar(20);not null;default:'not_started'"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Item) TableName() string {
	return "items"
}

// Amount returns the extended cost of the item line.
func (i *Item) Amount() float64 {
	return i.Quantity * i.UnitRate
}

// Assignment binds an account to a project. Its existence is the sole basis
// for client and employee visibility into that project's data.
type Assignment struct {
	ID         string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string    `json:"-" gorm:"type:varchar(255);not null;index;uniqueIndex:idx_assignment_once,priority:1"`
	ProjectID  string    `json:"project_id" gorm:"type:varchar(64);not null;index;uniqueIndex:idx_assignment_once,priority:2"`
	AccountID  string    `json:"account_id" gorm:"type:varchar(64);not null;index;uniqueIndex:idx_assignment_once,priority:3"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a Assignment) TableName() string {
	return "assignments"
}
