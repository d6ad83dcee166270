// Package lifecycle models the checkout and issue state machines that the
// storage layer encodes as a nullable date and a status string. Repos and
// handlers go through these transition functions instead of flipping fields
// directly, so terminal states stay terminal.
package lifecycle

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotPlanned      = errors.New("checkout is not planned")
	ErrNotActive       = errors.New("checkout is not active")
	ErrAlreadyReturned = errors.New("checkout already returned")

	ErrIssueTerminal      = errors.New("issue is in a terminal status")
	ErrUnknownIssueStatus = errors.New("unknown issue status")
	ErrResolutionRequired = errors.New("root cause and resolution notes are required")
)

// CheckoutPhase is the explicit form of the (checkout_date, is_returned)
// pair stored on a checkout row.
type CheckoutPhase int

const (
	Planned CheckoutPhase = iota
	Active
	Returned
)

func (p CheckoutPhase) String() string {
	switch p {
	case Planned:
		return "planned"
	case Active:
		return "active"
	case Returned:
		return "returned"
	}
	return "unknown"
}

// PhaseOf decodes the storage encoding: null date = planned, date set and
// not returned = active, returned = returned regardless of date.
func PhaseOf(checkoutDate *time.Time, isReturned bool) CheckoutPhase {
	if isReturned {
		return Returned
	}
	if checkoutDate == nil {
		return Planned
	}
	return Active
}

// Activate is the planned → active transition (action started, or attach
// with plan_commitment set).
func Activate(p CheckoutPhase) (CheckoutPhase, error) {
	switch p {
	case Planned:
		return Active, nil
	case Active:
		return Active, ErrNotPlanned
	default:
		return p, ErrAlreadyReturned
	}
}

// Return is the active → returned transition (check-in).
func Return(p CheckoutPhase) (CheckoutPhase, error) {
	switch p {
	case Active:
		return Returned, nil
	case Planned:
		return p, ErrNotActive
	default:
		return p, ErrAlreadyReturned
	}
}

// CanCancel reports whether the checkout row may simply be deleted. Only
// planned checkouts are cancellable; active ones must go through check-in so
// usage is recorded.
func CanCancel(p CheckoutPhase) bool { return p == Planned }

// IssueStatus lifecycle: active → resolved or active → removed, both
// terminal. Corrections require a new issue.
type IssueStatus string

const (
	IssueActive   IssueStatus = "active"
	IssueResolved IssueStatus = "resolved"
	IssueRemoved  IssueStatus = "removed"
)

func (s IssueStatus) Valid() bool {
	return s == IssueActive || s == IssueResolved || s == IssueRemoved
}

func (s IssueStatus) Terminal() bool { return s == IssueResolved || s == IssueRemoved }

// TransitionIssue validates a status change. Exhaustive: anything out of a
// terminal status fails, unknown statuses fail.
func TransitionIssue(from, to IssueStatus) error {
	if !from.Valid() || !to.Valid() {
		return ErrUnknownIssueStatus
	}
	if from.Terminal() {
		return ErrIssueTerminal
	}
	return nil
}

// Resolution is the data resolving an issue must carry.
type Resolution struct {
	RootCause string
	Notes     string
	ImageURLs []string
}

func (r Resolution) Validate() error {
	if strings.TrimSpace(r.RootCause) == "" || strings.TrimSpace(r.Notes) == "" {
		return ErrResolutionRequired
	}
	return nil
}
