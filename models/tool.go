package models

import "time"

const (
	ToolTable = "fw_tools"
	PartTable = "fw_parts"
)

// Tool statuses. Mutated only by the checkout/check-in workflows and the
// registry endpoints; tools are never hard-deleted, only marked removed.
const (
	ToolAvailable    = "available"
	ToolCheckedOut   = "checked_out"
	ToolUnavailable  = "unavailable"
	ToolUnableToFind = "unable_to_find"
	ToolRemoved      = "removed"
)

// Tool is a serialized, individually trackable asset. A nil Serial means the
// row is not individually trackable and can never be checked out.
type Tool struct {
	ID     string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string  `gorm:"size:200;not null" json:"name"`
	Serial *string `gorm:"size:120;uniqueIndex" json:"serial,omitempty"`
	Status string  `gorm:"size:20;not null;default:'available'" json:"status"`

	HasMotor bool `gorm:"not null;default:false" json:"hasMotor"` // gates hours_used at check-in

	// Where the tool currently sits vs. where it belongs. Check-in restores
	// StorageLocation to HomeLocation when HomeLocation is set.
	StorageLocation string `gorm:"size:200" json:"storageLocation,omitempty"`
	HomeLocation    string `gorm:"size:200" json:"homeLocation,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Tool) TableName() string { return ToolTable }

// Serialized reports whether the tool may be checked out at all.
func (t *Tool) Serialized() bool { return t.Serial != nil && *t.Serial != "" }

// Part is consumable, quantity-tracked stock. Parts have no serial numbers
// and never participate in the checkout lifecycle.
type Part struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Quantity    int    `gorm:"not null;default:0" json:"quantity"`
	Unit        string `gorm:"size:40" json:"unit,omitempty"`
	MinQuantity int    `gorm:"not null;default:0" json:"minQuantity"`
	Location    string `gorm:"size:200" json:"location,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Part) TableName() string { return PartTable }
