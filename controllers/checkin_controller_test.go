package controllers

import (
	"context"
	"net/http"
	"testing"

	"farmops/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkedOutTool(t *testing.T, s *Srv, serial string) (*models.Tool, *models.Checkout) {
	t.Helper()
	tool := seedHTTPTool(t, s, sptr(serial))
	action := seedHTTPAction(t, s, true)
	r := newTestRouter(t, s)
	w := doJSON(t, r, http.MethodPost, "/actions/"+action.ID+"/tools", map[string]string{"tool_id": tool.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	co, err := s.Repo.ActiveCheckoutForTool(context.Background(), tool.ID)
	require.NoError(t, err)
	return tool, co
}

func TestCreateCheckin_HTTP(t *testing.T) {
	t.Run("empty reflection is 400 before any storage", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		_, co := checkedOutTool(t, s, "SN-10")

		w := doJSON(t, r, http.MethodPost, "/checkins", map[string]any{
			"checkout_id":     co.ID,
			"what_did_you_do": "   ",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "reflection is required", decode(t, w)["error"])

		var n int64
		s.Repo.DB.Model(&models.Checkin{}).Count(&n)
		assert.Zero(t, n)
	})

	t.Run("minimal check-in succeeds", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		tool, co := checkedOutTool(t, s, "SN-11")

		w := doJSON(t, r, http.MethodPost, "/checkins", map[string]any{
			"checkout_id":     co.ID,
			"what_did_you_do": "felled two dead oaks",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		got, err := s.Repo.FindToolByID(context.Background(), tool.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ToolAvailable, got.Status)
	})

	t.Run("double check-in is 409", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		_, co := checkedOutTool(t, s, "SN-12")

		body := map[string]any{"checkout_id": co.ID, "what_did_you_do": "done"}
		w := doJSON(t, r, http.MethodPost, "/checkins", body)
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, r, http.MethodPost, "/checkins", body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "tool already checked in", decode(t, w)["error"])
	})

	t.Run("problem lines come back as issues", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		_, co := checkedOutTool(t, s, "SN-13")

		w := doJSON(t, r, http.MethodPost, "/checkins", map[string]any{
			"checkout_id":       co.ID,
			"what_did_you_do":   "bucked the windfall",
			"problems_reported": "bar oil leaking\nchain catcher bent",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		issues, _ := decode(t, w)["issues"].([]any)
		assert.Len(t, issues, 2)
	})
}

func TestUpdateCheckout_HTTP(t *testing.T) {
	s := newTestSrv(t)
	r := newTestRouter(t, s)
	tool, co := checkedOutTool(t, s, "SN-14")

	t.Run("reopen rejected", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/checkouts/"+co.ID, map[string]any{"is_returned": false})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("is_returned true runs a minimal check-in", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/checkouts/"+co.ID, map[string]any{"is_returned": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		got, err := s.Repo.FindToolByID(context.Background(), tool.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ToolAvailable, got.Status)

		var n int64
		s.Repo.DB.Model(&models.Checkin{}).Where("checkout_id = ?", co.ID).Count(&n)
		assert.EqualValues(t, 1, n)
	})
}

func TestUpdateIssue_HTTP(t *testing.T) {
	s := newTestSrv(t)
	r := newTestRouter(t, s)
	tool := seedHTTPTool(t, s, sptr("SN-15"))

	w := doJSON(t, r, http.MethodPost, "/issues", map[string]any{
		"context_type": "tool",
		"context_id":   tool.ID,
		"description":  "recoil spring weak",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	issueID, _ := decode(t, w)["id"].(string)
	require.NotEmpty(t, issueID)

	t.Run("resolve without notes is 400", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/issues/"+issueID, map[string]any{
			"op": "resolve", "root_cause": "age",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("resolve", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/issues/"+issueID, map[string]any{
			"op": "resolve", "root_cause": "age", "resolution_notes": "replaced spring",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "resolved", decode(t, w)["status"])
	})

	t.Run("second transition is 409", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/issues/"+issueID, map[string]any{
			"op": "remove", "note": "cleanup",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
