package db

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors the controllers map to HTTP statuses.
var (
	ErrToolNotFound            = errors.New("tool not found")
	ErrToolNotSerialized       = errors.New("tool has no serial number and cannot be checked out")
	ErrToolRemoved             = errors.New("tool has been removed")
	ErrToolBlocked             = errors.New("tool has an open issue that blocks checkout")
	ErrToolAlreadyCheckedOut   = errors.New("tool already checked out")
	ErrActionNotFound          = errors.New("action not found")
	ErrCheckoutNotFound        = errors.New("checkout not found")
	ErrCheckoutAlreadyReturned = errors.New("tool already checked in")
	ErrCheckoutNotActive       = errors.New("checkout is not active")
	ErrCheckoutNotPlanned      = errors.New("checkout is already active; check the tool in instead")
	ErrIssueNotFound           = errors.New("issue not found")
	ErrNoOpenCheckout          = errors.New("no open checkout for this tool")
	ErrReflectionRequired      = errors.New("reflection is required")
	ErrPartNotFound            = errors.New("part not found")
	ErrUserNotFound            = errors.New("user not found")
)

// IsDuplicateKey matches the unique-violation text of both backends we run
// against (Postgres in production, sqlite in tests).
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Friendly turns an unexpected storage error into the differentiated message
// the UI shows, falling back to a generic "failed to <op>". Known substrings
// only; everything else stays generic so internals do not leak.
func Friendly(op string, err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "row-level security"):
		return "you do not have permission to " + op
	case IsDuplicateKey(err):
		return "a matching record already exists"
	case strings.Contains(msg, "violates not-null constraint"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return "a required field was missing"
	case strings.Contains(msg, "violates foreign key constraint"),
		strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return "a referenced record no longer exists"
	}
	return fmt.Sprintf("failed to %s", op)
}
