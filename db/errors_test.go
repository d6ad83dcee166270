package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(errors.New("connection refused")))
	assert.True(t, IsDuplicateKey(errors.New(`ERROR: duplicate key value violates unique constraint "fw_checkouts_one_active_per_tool" (SQLSTATE 23505)`)))
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: fw_tools.serial")))
}

func TestFriendly(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"rls", errors.New(`new row violates row-level security policy for table "fw_issues"`), "you do not have permission to create issue"},
		{"duplicate", errors.New("duplicate key value violates unique constraint"), "a matching record already exists"},
		{"not null pg", errors.New(`null value in column "name" violates not-null constraint`), "a required field was missing"},
		{"not null sqlite", errors.New("NOT NULL constraint failed: fw_tools.name"), "a required field was missing"},
		{"fk pg", errors.New(`insert or update on table "fw_checkins" violates foreign key constraint`), "a referenced record no longer exists"},
		{"fk sqlite", errors.New("FOREIGN KEY constraint failed"), "a referenced record no longer exists"},
		{"unknown", errors.New("dial tcp: i/o timeout"), "failed to create issue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Friendly("create issue", tc.err))
		})
	}
}
