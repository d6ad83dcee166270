// Package client is the UI-side kit: a thin JSON gateway over the lifecycle
// endpoints and an optimistic cache for the screens that mutate counters and
// lists before the server confirms.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"farmops/db"
	"farmops/models"

	"github.com/google/uuid"
)

// APIError is a non-2xx response decoded into the server's error shape.
type APIError struct {
	Status  int
	Message string
	Notice  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Gateway issues requests against the farmops API. No retries, no implicit
// timeouts; cancellation is the caller's context.
type Gateway struct {
	base  *url.URL
	token string
	http  *http.Client
}

func NewGateway(baseURL, token string, hc *http.Client) (*Gateway, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Gateway{base: u, token: token, http: hc}, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, in, out any) error {
	u := *g.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out != nil && len(raw) > 0 {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// ActiveCheckout fetches the current active checkout for a tool, or nil when
// the tool is not checked out.
func (g *Gateway) ActiveCheckout(ctx context.Context, toolID string) (*models.Checkout, error) {
	q := url.Values{}
	q.Set("tool_id", toolID)
	q.Set("is_returned", "false")
	q.Set("limit", "1")
	var out struct {
		Checkouts []models.Checkout `json:"checkouts"`
	}
	if err := g.do(ctx, http.MethodGet, "/checkouts", q, nil, nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Checkouts {
		if out.Checkouts[i].CheckoutDate != nil {
			return &out.Checkouts[i], nil
		}
	}
	return nil, nil
}

type CreateCheckoutReq struct {
	ToolID       string     `json:"tool_id"`
	ActionID     *string    `json:"action_id,omitempty"`
	CheckoutDate *time.Time `json:"checkout_date,omitempty"`
}

func (g *Gateway) CreateCheckout(ctx context.Context, req CreateCheckoutReq) (*models.Checkout, error) {
	var co models.Checkout
	if err := g.do(ctx, http.MethodPost, "/checkouts", nil, nil, req, &co); err != nil {
		return nil, err
	}
	return &co, nil
}

func (g *Gateway) CancelCheckout(ctx context.Context, checkoutID string) error {
	return g.do(ctx, http.MethodDelete, "/checkouts/"+checkoutID, nil, nil, nil, nil)
}

type CheckinReq struct {
	// RequestID identifies the logical submission, not the HTTP attempt. It
	// is minted on first use and kept on the struct so retrying the same
	// submission replays the stored server response instead of double
	// check-in.
	RequestID string `json:"-"`

	CheckoutID       string   `json:"checkout_id"`
	WhatDidYouDo     string   `json:"what_did_you_do"`
	Notes            string   `json:"notes,omitempty"`
	SopBestPractices string   `json:"sop_best_practices,omitempty"`
	ProblemsReported string   `json:"problems_reported,omitempty"`
	CheckinReason    string   `json:"checkin_reason,omitempty"`
	HoursUsed        *float64 `json:"hours_used,omitempty"`
	AfterImageURLs   []string `json:"after_image_urls,omitempty"`
}

// CheckIn submits the check-in form. The reflection check mirrors the
// server's: an empty reflection never leaves the client. The request id is
// assigned once per CheckinReq, so a user-initiated resubmission of the same
// form after a network failure carries the same id and replays the stored
// result rather than double-creating.
func (g *Gateway) CheckIn(ctx context.Context, req *CheckinReq) (*db.CheckInResult, error) {
	if strings.TrimSpace(req.WhatDidYouDo) == "" {
		return nil, &ValidationError{Field: "what_did_you_do", Message: "reflection is required"}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	var out db.CheckInResult
	headers := map[string]string{"X-Request-ID": req.RequestID}
	if err := g.do(ctx, http.MethodPost, "/checkins", nil, headers, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttachTool binds a tool to a persisted action.
func (g *Gateway) AttachTool(ctx context.Context, actionID, toolID string) (*db.AttachToolResult, error) {
	var out struct {
		Result *db.AttachToolResult `json:"result"`
		Notice string               `json:"notice"`
	}
	body := map[string]string{"tool_id": toolID}
	if err := g.do(ctx, http.MethodPost, "/actions/"+actionID+"/tools", nil, nil, body, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (g *Gateway) DetachTool(ctx context.Context, actionID, toolID string) error {
	return g.do(ctx, http.MethodDelete, "/actions/"+actionID+"/tools/"+toolID, nil, nil, nil, nil)
}

func (g *Gateway) GetAction(ctx context.Context, id string) (*models.Action, error) {
	var a models.Action
	if err := g.do(ctx, http.MethodGet, "/actions/"+id, nil, nil, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (g *Gateway) UpdateTool(ctx context.Context, id string, in db.UpdateToolInput) (*models.Tool, error) {
	var t models.Tool
	if err := g.do(ctx, http.MethodPut, "/tools/"+id, nil, nil, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (g *Gateway) CreateIssue(ctx context.Context, in map[string]any) (*models.Issue, error) {
	var issue models.Issue
	if err := g.do(ctx, http.MethodPost, "/issues", nil, nil, in, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ResolveIssue validates client-side before any network call, matching the
// form behavior.
func (g *Gateway) ResolveIssue(ctx context.Context, id, rootCause, notes string, imageURLs []string) (*models.Issue, error) {
	if strings.TrimSpace(rootCause) == "" || strings.TrimSpace(notes) == "" {
		return nil, &ValidationError{Field: "resolution", Message: "root cause and resolution notes are required"}
	}
	body := map[string]any{
		"op":               "resolve",
		"root_cause":       rootCause,
		"resolution_notes": notes,
		"image_urls":       imageURLs,
	}
	var issue models.Issue
	if err := g.do(ctx, http.MethodPut, "/issues/"+id, nil, nil, body, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (g *Gateway) RemoveIssue(ctx context.Context, id, note string) (*models.Issue, error) {
	body := map[string]any{"op": "remove", "note": note}
	var issue models.Issue
	if err := g.do(ctx, http.MethodPut, "/issues/"+id, nil, nil, body, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (g *Gateway) AddActionUpdate(ctx context.Context, actionID, body string) (*models.ActionUpdate, error) {
	var upd models.ActionUpdate
	in := map[string]string{"body": body}
	if err := g.do(ctx, http.MethodPost, "/actions/"+actionID+"/updates", nil, nil, in, &upd); err != nil {
		return nil, err
	}
	return &upd, nil
}

func (g *Gateway) DeleteActionUpdate(ctx context.Context, actionID, updateID string) error {
	return g.do(ctx, http.MethodDelete, "/actions/"+actionID+"/updates/"+updateID, nil, nil, nil, nil)
}

// ValidationError blocks submission client-side; no request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }
