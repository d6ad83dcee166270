package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionTable       = "fw_actions"
	ActionUpdateTable = "fw_action_updates"
)

// Action kinds, lowest to highest level of work.
const (
	KindAction      = "action"
	KindMission     = "mission"
	KindExploration = "exploration"
)

const (
	ActionPlanned    = "planned"
	ActionInProgress = "in_progress"
	ActionCompleted  = "completed"
)

// Action is a unit of work owning zero-or-more checkouts and issues.
// PlanCommitment decides whether attaching a tool creates an active or a
// planned checkout. Missions and explorations reuse the same table with a
// different Kind and an optional parent.
type Action struct {
	ID       string  `gorm:"type:uuid;primaryKey" json:"id"`
	Kind     string  `gorm:"size:20;index;not null;default:'action'" json:"kind"`
	ParentID *string `gorm:"type:uuid;index" json:"parentId,omitempty"`

	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Status      string `gorm:"size:20;index;not null;default:'planned'" json:"status"`

	PlanCommitment bool           `gorm:"not null;default:false" json:"planCommitment"`
	RequiredTools  datatypes.JSON `json:"requiredTools,omitempty"` // tool IDs

	// Denormalized count of update rows, kept in step by the update endpoint
	// so list screens need not join.
	UpdateCount int `gorm:"not null;default:0" json:"updateCount"`

	CreatedBy string    `gorm:"size:255" json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Action) TableName() string { return ActionTable }

// ActionUpdate is a free-text progress note on an action.
type ActionUpdate struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ActionID  string    `gorm:"type:uuid;index;not null" json:"actionId"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedBy string    `gorm:"size:255" json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (ActionUpdate) TableName() string { return ActionUpdateTable }
