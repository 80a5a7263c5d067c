package entity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/recruitflow/automation/internal/fields"
)

// HTTPGateway talks to the platform's internal entity API. One instance is
// shared by the engine, scheduler and test harness.
type HTTPGateway struct {
	client *resty.Client
}

// NewHTTPGateway builds a gateway against the entity service base URL.
// The token, when non-empty, is sent as a bearer credential.
func NewHTTPGateway(baseURL, token string, timeout time.Duration) *HTTPGateway {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &HTTPGateway{client: client}
}

func (g *HTTPGateway) get(ctx context.Context, out any, path string, query map[string]string) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("entity: %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrRecordNotFound
	}
	if resp.IsError() {
		return fmt.Errorf("entity: %s: status %d", path, resp.StatusCode())
	}
	return nil
}

// ListFields implements Gateway.
func (g *HTTPGateway) ListFields(ctx context.Context, model string) ([]fields.ModelField, error) {
	var out struct {
		Fields []fields.ModelField `json:"fields"`
	}
	if err := g.get(ctx, &out, fmt.Sprintf("/internal/models/%s/fields", model), nil); err != nil {
		return nil, err
	}
	return out.Fields, nil
}

// RelatedModel implements Gateway.
func (g *HTTPGateway) RelatedModel(ctx context.Context, model, field string) (string, error) {
	var out struct {
		RelatedModel string `json:"related_model"`
	}
	if err := g.get(ctx, &out, fmt.Sprintf("/internal/models/%s/fields/%s/related", model, field), nil); err != nil {
		return "", err
	}
	return out.RelatedModel, nil
}

// GetRecord implements Gateway.
func (g *HTTPGateway) GetRecord(ctx context.Context, model, id string) (*Record, error) {
	var out Record
	if err := g.get(ctx, &out, fmt.Sprintf("/internal/records/%s/%s", model, id), nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// RelatedRecord implements Gateway.
func (g *HTTPGateway) RelatedRecord(ctx context.Context, model, id, relationField string) (string, *Record, error) {
	var out struct {
		RelatedModel string   `json:"related_model"`
		Records      []Record `json:"records"`
	}
	err := g.get(ctx, &out, fmt.Sprintf("/internal/records/%s/%s/related/%s", model, id, relationField), nil)
	if err != nil {
		return "", nil, err
	}
	switch len(out.Records) {
	case 0:
		return out.RelatedModel, nil, ErrNoRelated
	case 1:
		return out.RelatedModel, &out.Records[0], nil
	default:
		return out.RelatedModel, nil, ErrAmbiguousRelated
	}
}

// UpdateField implements Gateway.
func (g *HTTPGateway) UpdateField(ctx context.Context, model, id, field string, value any) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"field": field, "value": value}).
		Patch(fmt.Sprintf("/internal/records/%s/%s", model, id))
	if err != nil {
		return fmt.Errorf("entity: update %s/%s: %w", model, id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrRecordNotFound
	}
	if resp.IsError() {
		return fmt.Errorf("entity: update %s/%s: status %d", model, id, resp.StatusCode())
	}
	return nil
}

// ListSampleRecords implements Gateway.
func (g *HTTPGateway) ListSampleRecords(ctx context.Context, model string, limit int) ([]SampleRecord, error) {
	var out struct {
		Records []SampleRecord `json:"records"`
	}
	query := map[string]string{"limit": fmt.Sprintf("%d", limit)}
	if err := g.get(ctx, &out, fmt.Sprintf("/internal/records/%s", model), query); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// DueRecords implements Gateway.
func (g *HTTPGateway) DueRecords(ctx context.Context, model, datetimeField string, from, to time.Time, limit int) ([]Record, error) {
	var out struct {
		Records []Record `json:"records"`
	}
	query := map[string]string{
		"field": datetimeField,
		"from":  from.UTC().Format(time.RFC3339),
		"to":    to.UTC().Format(time.RFC3339),
		"limit": fmt.Sprintf("%d", limit),
	}
	if err := g.get(ctx, &out, fmt.Sprintf("/internal/records/%s/due", model), query); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// ResolveRecipients implements Gateway.
func (g *HTTPGateway) ResolveRecipients(ctx context.Context, recipientType, model string, record *Record) ([]Recipient, error) {
	var out struct {
		Recipients []Recipient `json:"recipients"`
	}
	recordID := ""
	if record != nil {
		recordID = record.ID
	}
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"recipient_type": recipientType,
			"model":          model,
			"record_id":      recordID,
		}).
		SetResult(&out).
		Post("/internal/recipients/resolve")
	if err != nil {
		return nil, fmt.Errorf("entity: resolve recipients: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("entity: resolve recipients: status %d", resp.StatusCode())
	}
	return out.Recipients, nil
}

// SendEmail implements Gateway.
func (g *HTTPGateway) SendEmail(ctx context.Context, to, subject, body string) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"to": to, "subject": subject, "body": body}).
		Post("/internal/email/send")
	if err != nil {
		return fmt.Errorf("entity: send email: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("entity: send email: status %d", resp.StatusCode())
	}
	return nil
}

// CreateActivity implements Gateway.
func (g *HTTPGateway) CreateActivity(ctx context.Context, model, id, activityType, content string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"activity_type": activityType, "content": content}).
		SetResult(&out).
		Post(fmt.Sprintf("/internal/records/%s/%s/activities", model, id))
	if err != nil {
		return "", fmt.Errorf("entity: create activity: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("entity: create activity: status %d", resp.StatusCode())
	}
	return out.ID, nil
}
