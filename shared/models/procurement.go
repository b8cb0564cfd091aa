package models

import (
	"time"
)

// ProcurementItem is a purchasing record for project material. Cost is what
// the studio pays the vendor; InternalMarkup is the margin added on top before
// billing. Markup is never shown to client-role principals.
type ProcurementItem struct {
	ID         string `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string `json:"-" gorm:"type:varchar(255);not null;index"`
	ProjectID  string `json:"project_id" gorm:"type:varchar(64);not null;index"`
	ItemID     string `json:"item_id,omitempty" gorm:"type:varchar(64);index"`
	Vendor     string `json:"vendor"`
	Name       string `json:"name" gorm:"not null"`
	Quantity   float64 `json:"quantity" gorm:"default:0"`
	Cost       float64 `json:"cost" gorm:"default:0"`
	// InternalMarkup is zeroed out in client-facing responses regardless of
	// the stored value.
	InternalMarkup float64    `json:"internal_markup"`
	Status         ItemStatus `json:"status" gorm:"type:varchar(20);not null;default:'not_started'"`
	OrderedAt      *time.Time `json:"ordered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (ProcurementItem) TableName() string {
	return "procurement_items"
}
