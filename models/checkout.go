package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CheckoutTable = "fw_checkouts"
	CheckinTable  = "fw_checkins"
)

// Checkout links a tool to a user and (optionally) an action. A nil
// CheckoutDate means the checkout is planned, not yet active. At most one
// active (is_returned = false, checkout_date set) checkout may exist per
// tool; a partial unique index enforces this in Postgres.
type Checkout struct {
	ID       string  `gorm:"type:uuid;primaryKey" json:"id"`
	ToolID   string  `gorm:"type:uuid;index;not null" json:"toolId"`
	UserID   string  `gorm:"type:uuid;index;not null" json:"userId"`
	UserName string  `gorm:"size:255" json:"userName"`
	ActionID *string `gorm:"type:uuid;index" json:"actionId,omitempty"`

	CheckoutDate *time.Time `gorm:"index" json:"checkoutDate,omitempty"`
	IsReturned   bool       `gorm:"not null;default:false" json:"isReturned"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Checkout) TableName() string { return CheckoutTable }

// Checkin is the immutable record written when an active checkout closes.
// Never updated after creation.
type Checkin struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	CheckoutID string `gorm:"type:uuid;index;not null" json:"checkoutId"`
	ToolID     string `gorm:"type:uuid;index;not null" json:"toolId"`
	UserName   string `gorm:"size:255" json:"userName"`

	WhatDidYouDo     string `gorm:"type:text;not null" json:"whatDidYouDo"`
	Notes            string `gorm:"type:text" json:"notes,omitempty"`
	ProblemsReported string `gorm:"type:text" json:"problemsReported,omitempty"`
	SopBestPractices string `gorm:"type:text" json:"sopBestPractices,omitempty"`
	CheckinReason    string `gorm:"size:120" json:"checkinReason,omitempty"`

	HoursUsed      *float64       `json:"hoursUsed,omitempty"` // only for tools with motors
	AfterImageURLs datatypes.JSON `json:"afterImageUrls,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Checkin) TableName() string { return CheckinTable }
