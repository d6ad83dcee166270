package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	IssueTable        = "fw_issues"
	IssueHistoryTable = "fw_issue_history"
)

const IssueTypeGeneral = "general"

// Issue is a reported problem linked to a context entity (tool, action,
// mission...). Status transitions are active → resolved or active → removed,
// both terminal; see the lifecycle package.
type Issue struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	ContextType string `gorm:"size:40;index:idx_fw_issues_ctx;not null" json:"contextType"`
	ContextID   string `gorm:"type:uuid;index:idx_fw_issues_ctx;not null" json:"contextId"`

	Description string `gorm:"type:text;not null" json:"description"`
	IssueType   string `gorm:"size:40;not null;default:'general'" json:"issueType"`
	Status      string `gorm:"size:20;index;not null;default:'active'" json:"status"`

	BlocksCheckout bool `gorm:"not null;default:false" json:"blocksCheckout"`
	IsMisuse       bool `gorm:"not null;default:false" json:"isMisuse"`

	// Photos supplied when the issue was reported (e.g. at check-in).
	ImageURLs datatypes.JSON `json:"imageUrls,omitempty"`

	// Populated only on resolution.
	RootCause           *string        `gorm:"type:text" json:"rootCause,omitempty"`
	ResolutionNotes     *string        `gorm:"type:text" json:"resolutionNotes,omitempty"`
	ResolutionImageURLs datatypes.JSON `json:"resolutionImageUrls,omitempty"`

	ReportedBy string    `gorm:"size:255" json:"reportedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Issue) TableName() string { return IssueTable }

// IssueHistory is a best-effort audit row written on every status change.
type IssueHistory struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID   string    `gorm:"type:uuid;index;not null" json:"issueId"`
	OldStatus string    `gorm:"size:20;not null" json:"oldStatus"`
	NewStatus string    `gorm:"size:20;not null" json:"newStatus"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy string    `gorm:"size:255" json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (IssueHistory) TableName() string { return IssueHistoryTable }
