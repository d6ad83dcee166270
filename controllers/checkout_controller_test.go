package controllers

import (
	"context"
	"net/http"
	"testing"

	"farmops/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachTool_HTTP(t *testing.T) {
	t.Run("no plan commitment yields planned checkout", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		tool := seedHTTPTool(t, s, sptr("SN-1"))
		action := seedHTTPAction(t, s, false)

		w := doJSON(t, r, http.MethodPost, "/actions/"+action.ID+"/tools", map[string]string{"tool_id": tool.ID})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		got, err := s.Repo.FindToolByID(context.Background(), tool.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ToolAvailable, got.Status)
	})

	t.Run("plan commitment checks the tool out immediately", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		tool := seedHTTPTool(t, s, sptr("SN-2"))
		action := seedHTTPAction(t, s, true)

		w := doJSON(t, r, http.MethodPost, "/actions/"+action.ID+"/tools", map[string]string{"tool_id": tool.ID})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		got, err := s.Repo.FindToolByID(context.Background(), tool.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ToolCheckedOut, got.Status)
	})

	t.Run("unserialized tool is 422", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		tool := seedHTTPTool(t, s, nil)
		action := seedHTTPAction(t, s, true)

		w := doJSON(t, r, http.MethodPost, "/actions/"+action.ID+"/tools", map[string]string{"tool_id": tool.ID})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var n int64
		s.Repo.DB.Model(&models.Checkout{}).Count(&n)
		assert.Zero(t, n)
	})

	t.Run("duplicate active checkout is 200 with notice", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		tool := seedHTTPTool(t, s, sptr("SN-3"))
		first := seedHTTPAction(t, s, true)
		second := seedHTTPAction(t, s, true)

		w := doJSON(t, r, http.MethodPost, "/actions/"+first.ID+"/tools", map[string]string{"tool_id": tool.ID})
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, r, http.MethodPost, "/actions/"+second.ID+"/tools", map[string]string{"tool_id": tool.ID})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "tool already checked out", decode(t, w)["notice"])

		var n int64
		s.Repo.DB.Model(&models.Checkout{}).
			Where("tool_id = ? AND is_returned = ? AND checkout_date IS NOT NULL", tool.ID, false).
			Count(&n)
		assert.EqualValues(t, 1, n)
	})

	t.Run("blocked tool is 409", func(t *testing.T) {
		s := newTestSrv(t)
		r := newTestRouter(t, s)
		tool := seedHTTPTool(t, s, sptr("SN-4"))
		action := seedHTTPAction(t, s, true)

		w := doJSON(t, r, http.MethodPost, "/issues", map[string]any{
			"context_type":    "tool",
			"context_id":      tool.ID,
			"description":     "chain tensioner broken",
			"blocks_checkout": true,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, r, http.MethodPost, "/actions/"+action.ID+"/tools", map[string]string{"tool_id": tool.ID})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestStartAction_HTTP(t *testing.T) {
	s := newTestSrv(t)
	r := newTestRouter(t, s)
	tool := seedHTTPTool(t, s, sptr("SN-5"))
	action := seedHTTPAction(t, s, false)

	w := doJSON(t, r, http.MethodPost, "/actions/"+action.ID+"/tools", map[string]string{"tool_id": tool.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/actions/"+action.ID+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["activatedCheckouts"])

	got, err := s.Repo.FindToolByID(context.Background(), tool.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToolCheckedOut, got.Status)
}

func TestCancelCheckout_HTTP(t *testing.T) {
	s := newTestSrv(t)
	r := newTestRouter(t, s)
	tool := seedHTTPTool(t, s, sptr("SN-6"))
	action := seedHTTPAction(t, s, true)

	w := doJSON(t, r, http.MethodPost, "/actions/"+action.ID+"/tools", map[string]string{"tool_id": tool.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	co, err := s.Repo.ActiveCheckoutForTool(context.Background(), tool.ID)
	require.NoError(t, err)

	// active checkouts must go through check-in, not cancel
	w = doJSON(t, r, http.MethodDelete, "/checkouts/"+co.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
