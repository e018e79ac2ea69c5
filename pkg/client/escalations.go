package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

type EscalationService struct {
	client *Client
}

func (c *Client) Escalations() *EscalationService {
	return &EscalationService{client: c}
}

// List sends every filter field as given. Callers normalize defaults.
func (e *EscalationService) List(ctx context.Context, filter v1.EscalationFilter) ([]v1.Escalation, error) {
	query := url.Values{}
	query.Set("status", filter.Status)
	query.Set("priority", filter.Priority)
	query.Set("limit", strconv.Itoa(filter.Limit))

	var list v1.EscalationList
	if err := e.client.do(ctx, "escalations.list", http.MethodGet, "/officer/escalations", query, nil, &list); err != nil {
		return nil, err
	}
	if list.Escalations == nil {
		return []v1.Escalation{}, nil
	}
	return list.Escalations, nil
}

func (e *EscalationService) Get(ctx context.Context, id int64) (*v1.Escalation, error) {
	var esc v1.Escalation
	endpoint := fmt.Sprintf("/officer/escalations/%d", id)
	if err := e.client.do(ctx, "escalations.get", http.MethodGet, endpoint, nil, nil, &esc); err != nil {
		return nil, err
	}
	return &esc, nil
}

// Respond sends the officer's answer for escalation id. Blank text is
// rejected without contacting the backend.
func (e *EscalationService) Respond(ctx context.Context, id int64, text string) (*v1.RespondResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("response text is required")
	}
	var result v1.RespondResult
	endpoint := fmt.Sprintf("/officer/respond/%d", id)
	body := v1.RespondRequest{Response: text}
	if err := e.client.do(ctx, "escalations.respond", http.MethodPost, endpoint, nil, body, &result); err != nil {
		return nil, err
	}
	if result.EscalationID == 0 {
		result.EscalationID = id
	}
	return &result, nil
}
