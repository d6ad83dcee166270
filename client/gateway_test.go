package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmops/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := NewGateway(srv.URL, "test-token", srv.Client())
	require.NoError(t, err)
	return g
}

func TestActiveCheckout_QueryAndFiltering(t *testing.T) {
	now := time.Now().UTC()
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkouts", r.URL.Path)
		assert.Equal(t, "tool-1", r.URL.Query().Get("tool_id"))
		assert.Equal(t, "false", r.URL.Query().Get("is_returned"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"checkouts": []models.Checkout{
				{ID: "planned", ToolID: "tool-1"},
				{ID: "active", ToolID: "tool-1", CheckoutDate: &now},
			},
		})
	})

	co, err := g.ActiveCheckout(context.Background(), "tool-1")
	require.NoError(t, err)
	require.NotNil(t, co)
	assert.Equal(t, "active", co.ID, "planned checkouts (null date) are skipped")
}

func TestActiveCheckout_NoneReturnsNil(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"checkouts": []models.Checkout{}})
	})
	co, err := g.ActiveCheckout(context.Background(), "tool-1")
	require.NoError(t, err)
	assert.Nil(t, co)
}

func TestCheckIn_EmptyReflectionNeverReachesServer(t *testing.T) {
	called := false
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := g.CheckIn(context.Background(), &CheckinReq{CheckoutID: "co-1", WhatDidYouDo: "  "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "what_did_you_do", verr.Field)
	assert.False(t, called, "validation failure must not make a request")
}

func TestCheckIn_RequestIDStableAcrossRetries(t *testing.T) {
	var seen []string
	calls := 0
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Request-ID"))
		calls++
		if calls == 1 {
			// first attempt dies mid-flight; the user hits submit again
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})

	req := &CheckinReq{CheckoutID: "co-1", WhatDidYouDo: "mowed"}
	_, err := g.CheckIn(context.Background(), req)
	require.Error(t, err)

	_, err = g.CheckIn(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.Equal(t, seen[0], seen[1], "retrying the same submission must replay the same request id")
}

func TestCheckIn_DistinctSubmissionsGetDistinctIDs(t *testing.T) {
	var seen []string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})

	for _, co := range []string{"co-1", "co-2"} {
		_, err := g.CheckIn(context.Background(), &CheckinReq{CheckoutID: co, WhatDidYouDo: "mowed"})
		require.NoError(t, err)
	}
	require.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1])
}

func TestResolveIssue_ClientSideValidation(t *testing.T) {
	called := false
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := g.ResolveIssue(context.Background(), "issue-1", "worn belt", "  ", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, called)
}

func TestResolveIssue_SendsResolveOp(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/issues/issue-1", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "resolve", body["op"])
		assert.Equal(t, "worn belt", body["root_cause"])
		json.NewEncoder(w).Encode(models.Issue{ID: "issue-1", Status: "resolved"})
	})

	issue, err := g.ResolveIssue(context.Background(), "issue-1", "worn belt", "replaced", nil)
	require.NoError(t, err)
	assert.Equal(t, "resolved", issue.Status)
}

func TestDo_NonOKDecodesAPIError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "tool already checked in"})
	})

	err := g.CancelCheckout(context.Background(), "co-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "tool already checked in", apiErr.Message)
}

func TestDo_NonJSONErrorFallsBackToStatusText(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>gateway timeout</html>", http.StatusBadGateway)
	})

	err := g.CancelCheckout(context.Background(), "co-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestDraftAddTool(t *testing.T) {
	var d ActionDraft

	t.Run("unserialized tool rejected locally", func(t *testing.T) {
		_, err := d.AddTool("tool-1", " ")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Empty(t, d.RequiredTools())
	})

	t.Run("add then re-add is a notice", func(t *testing.T) {
		already, err := d.AddTool("tool-1", "SN-1")
		require.NoError(t, err)
		assert.False(t, already)

		already, err = d.AddTool("tool-1", "SN-1")
		require.NoError(t, err)
		assert.True(t, already)
		assert.Equal(t, []string{"tool-1"}, d.RequiredTools())
	})

	t.Run("remove", func(t *testing.T) {
		d.RemoveTool("tool-1")
		assert.Empty(t, d.RequiredTools())
	})
}

func TestDraftSave_CreatesActionThenAttaches(t *testing.T) {
	var attached []string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/actions":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, true, body["plan_commitment"])
			json.NewEncoder(w).Encode(models.Action{ID: "action-1"})
		case r.Method == http.MethodPost && r.URL.Path == "/actions/action-1/tools":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			attached = append(attached, body["tool_id"])
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"result":{}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	d := ActionDraft{Kind: "mission", Title: "clear north field", PlanCommitment: true}
	for _, id := range []string{"tool-1", "tool-2"} {
		_, err := d.AddTool(id, "SN")
		require.NoError(t, err)
	}

	action, err := d.Save(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, "action-1", action.ID)
	assert.Equal(t, []string{"tool-1", "tool-2"}, attached)
}
