package client

import (
	"context"
	"net/http"
	"strings"

	"farmops/models"
)

// ActionDraft is an action being composed in the UI that has no server id
// yet. Attaching a tool to a draft only records the id locally; the
// checkouts are created when the draft is saved.
type ActionDraft struct {
	Kind           string
	Title          string
	Description    string
	PlanCommitment bool

	requiredTools []string
}

// AddTool records a tool on the draft. Tools without serial numbers are
// rejected here, before any network traffic. Returns true when the tool was
// already on the draft (a notice, not an error).
func (d *ActionDraft) AddTool(toolID, serial string) (already bool, err error) {
	if strings.TrimSpace(serial) == "" {
		return false, &ValidationError{Field: "serial", Message: "only serialized tools can be checked out"}
	}
	for _, id := range d.requiredTools {
		if id == toolID {
			return true, nil
		}
	}
	d.requiredTools = append(d.requiredTools, toolID)
	return false, nil
}

func (d *ActionDraft) RemoveTool(toolID string) {
	kept := d.requiredTools[:0]
	for _, id := range d.requiredTools {
		if id != toolID {
			kept = append(kept, id)
		}
	}
	d.requiredTools = kept
}

func (d *ActionDraft) RequiredTools() []string {
	return append([]string(nil), d.requiredTools...)
}

// Save persists the draft: create the action, then attach each recorded
// tool. Attach failures abort with the partially created action returned so
// the UI can offer a retry against the now-persisted action.
func (d *ActionDraft) Save(ctx context.Context, g *Gateway) (*models.Action, error) {
	body := map[string]any{
		"kind":            d.Kind,
		"title":           d.Title,
		"description":     d.Description,
		"plan_commitment": d.PlanCommitment,
	}
	var action models.Action
	if err := g.do(ctx, http.MethodPost, "/actions", nil, nil, body, &action); err != nil {
		return nil, err
	}
	for _, toolID := range d.requiredTools {
		if _, err := g.AttachTool(ctx, action.ID, toolID); err != nil {
			return &action, err
		}
	}
	return &action, nil
}
