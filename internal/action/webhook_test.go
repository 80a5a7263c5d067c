package action

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/models"
)

func webhookRule(url string) *models.Rule {
	return &models.Rule{
		ID:           1,
		TriggerModel: "job",
		ActionType:   models.ActionSendWebhook,
		ActionConfig: datatypes.JSON(`{"url":"` + url + `","method":"POST","headers":{"X-Source":"automation"},"payload_template":"{\"job\":\"{{title}}\"}"}`),
	}
}

func webhookRequest(gw *stubGateway, rule *models.Rule) *Request {
	return &Request{
		Rule:    rule,
		Record:  &entity.Record{ID: "17", Snapshot: map[string]any{"title": "Engineer"}},
		Catalog: jobCatalog(gw),
	}
}

func TestWebhookExecuteDeliversRenderedPayload(t *testing.T) {
	var gotBody, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotHeader = r.Header.Get("X-Source")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gw := newStubGateway()
	handler := NewWebhookHandler(2 * time.Second)
	result, err := handler.Execute(context.Background(), webhookRequest(gw, webhookRule(server.URL)), true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotBody != `{"job":"Engineer"}` {
		t.Fatalf("body = %q", gotBody)
	}
	if gotHeader != "automation" {
		t.Fatalf("header = %q, want automation", gotHeader)
	}
	if result.Detail["status_code"] != 200 {
		t.Fatalf("status_code = %v, want 200", result.Detail["status_code"])
	}
	if _, ok := result.Detail["response_time_ms"]; !ok {
		t.Fatal("response_time_ms missing")
	}
}

func TestWebhookDryRunMakesNoCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gw := newStubGateway()
	handler := NewWebhookHandler(2 * time.Second)
	result, err := handler.Execute(context.Background(), webhookRequest(gw, webhookRule(server.URL)), false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if calls != 0 {
		t.Fatalf("dry run made %d calls", calls)
	}
	if result.Preview["payload"] != `{"job":"Engineer"}` {
		t.Fatalf("preview payload = %v", result.Preview["payload"])
	}
	if result.Detail != nil {
		t.Fatal("dry run should carry no detail")
	}
}

func TestWebhookNon2xxFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gw := newStubGateway()
	handler := NewWebhookHandler(2 * time.Second)
	result, err := handler.Execute(context.Background(), webhookRequest(gw, webhookRule(server.URL)), true)
	if err == nil {
		t.Fatal("non-2xx should fail the execution")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want the status code mentioned", err)
	}
	if result == nil || result.Detail["status_code"] != 502 {
		t.Fatalf("result should still carry the response detail: %+v", result)
	}
}

func TestWebhookMissingURLFails(t *testing.T) {
	gw := newStubGateway()
	rule := &models.Rule{
		TriggerModel: "job",
		ActionType:   models.ActionSendWebhook,
		ActionConfig: datatypes.JSON(`{"method":"POST"}`),
	}
	handler := NewWebhookHandler(2 * time.Second)
	if _, err := handler.Execute(context.Background(), webhookRequest(gw, rule), false); err == nil {
		t.Fatal("missing URL should fail even on dry run")
	}
}

func TestWebhookRejectsDisallowedMethod(t *testing.T) {
	gw := newStubGateway()
	rule := &models.Rule{
		TriggerModel: "job",
		ActionType:   models.ActionSendWebhook,
		ActionConfig: datatypes.JSON(`{"url":"https://example.com","method":"DELETE"}`),
	}
	handler := NewWebhookHandler(2 * time.Second)
	if _, err := handler.Execute(context.Background(), webhookRequest(gw, rule), false); err == nil {
		t.Fatal("DELETE should be rejected")
	}
}
