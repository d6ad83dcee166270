package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseOf(t *testing.T) {
	now := time.Now()

	t.Run("null date means planned", func(t *testing.T) {
		assert.Equal(t, Planned, PhaseOf(nil, false))
	})

	t.Run("date set and not returned means active", func(t *testing.T) {
		assert.Equal(t, Active, PhaseOf(&now, false))
	})

	t.Run("returned wins regardless of date", func(t *testing.T) {
		assert.Equal(t, Returned, PhaseOf(&now, true))
		assert.Equal(t, Returned, PhaseOf(nil, true))
	})
}

func TestActivate(t *testing.T) {
	t.Run("planned activates", func(t *testing.T) {
		p, err := Activate(Planned)
		assert.NoError(t, err)
		assert.Equal(t, Active, p)
	})

	t.Run("active stays active with error", func(t *testing.T) {
		p, err := Activate(Active)
		assert.ErrorIs(t, err, ErrNotPlanned)
		assert.Equal(t, Active, p)
	})

	t.Run("returned is terminal", func(t *testing.T) {
		_, err := Activate(Returned)
		assert.ErrorIs(t, err, ErrAlreadyReturned)
	})
}

func TestReturn(t *testing.T) {
	t.Run("active returns", func(t *testing.T) {
		p, err := Return(Active)
		assert.NoError(t, err)
		assert.Equal(t, Returned, p)
	})

	t.Run("planned cannot return", func(t *testing.T) {
		_, err := Return(Planned)
		assert.ErrorIs(t, err, ErrNotActive)
	})

	t.Run("double return rejected", func(t *testing.T) {
		_, err := Return(Returned)
		assert.ErrorIs(t, err, ErrAlreadyReturned)
	})
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(Planned))
	assert.False(t, CanCancel(Active))
	assert.False(t, CanCancel(Returned))
}

func TestTransitionIssue(t *testing.T) {
	t.Run("active to resolved", func(t *testing.T) {
		assert.NoError(t, TransitionIssue(IssueActive, IssueResolved))
	})

	t.Run("active to removed", func(t *testing.T) {
		assert.NoError(t, TransitionIssue(IssueActive, IssueRemoved))
	})

	t.Run("terminal states admit nothing", func(t *testing.T) {
		for _, from := range []IssueStatus{IssueResolved, IssueRemoved} {
			for _, to := range []IssueStatus{IssueActive, IssueResolved, IssueRemoved} {
				assert.ErrorIs(t, TransitionIssue(from, to), ErrIssueTerminal, "%s -> %s", from, to)
			}
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		assert.ErrorIs(t, TransitionIssue("weird", IssueResolved), ErrUnknownIssueStatus)
		assert.ErrorIs(t, TransitionIssue(IssueActive, "weird"), ErrUnknownIssueStatus)
	})
}

func TestResolutionValidate(t *testing.T) {
	assert.NoError(t, Resolution{RootCause: "worn belt", Notes: "replaced"}.Validate())
	assert.ErrorIs(t, Resolution{RootCause: "", Notes: "replaced"}.Validate(), ErrResolutionRequired)
	assert.ErrorIs(t, Resolution{RootCause: "worn belt", Notes: "  "}.Validate(), ErrResolutionRequired)
}
