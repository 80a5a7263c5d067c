package action

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/models"
)

func notificationRule(config string) *models.Rule {
	return &models.Rule{
		ID:           3,
		TriggerModel: "job",
		ActionType:   models.ActionSendNotification,
		ActionConfig: datatypes.JSON(config),
	}
}

func notificationRequest(gw *stubGateway, rule *models.Rule, executionID uint64) *Request {
	return &Request{
		Rule:        rule,
		Record:      &entity.Record{ID: "17", Snapshot: map[string]any{"title": "Engineer"}},
		Catalog:     jobCatalog(gw),
		ExecutionID: executionID,
	}
}

func userID(v uint64) *uint64 { return &v }

// seedOwners persists the rule and a running execution so the notification
// rows written by the handler satisfy the foreign keys.
func seedOwners(t *testing.T, conn *gorm.DB, rule *models.Rule, executionID uint64) {
	t.Helper()
	rule.Name = "notify"
	rule.TriggerType = models.TriggerModelCreated
	rule.IsActive = true
	if err := conn.Create(rule).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}
	exec := models.Execution{
		ID:          executionID,
		RuleID:      rule.ID,
		Status:      models.ExecutionRunning,
		TriggerType: rule.TriggerType,
		ActionType:  rule.ActionType,
		StartedAt:   time.Now().UTC(),
	}
	if err := conn.Create(&exec).Error; err != nil {
		t.Fatalf("create execution: %v", err)
	}
}

func TestNotificationCreatesInAppRows(t *testing.T) {
	conn := testDB(t)
	gw := newStubGateway()
	gw.recipients = []entity.Recipient{
		{UserID: userID(5), Name: "Recruiter"},
		{UserID: userID(6), Name: "Manager"},
	}

	rule := notificationRule(`{"channel":"in_app","recipient_type":"assigned_user","title_template":"New job","body_template":"{{title}} was posted"}`)
	seedOwners(t, conn, rule, 11)
	handler := NewNotificationHandler(conn, gw)

	result, err := handler.Execute(context.Background(), notificationRequest(gw, rule, 11), true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Detail["notifications_created"] != 2 {
		t.Fatalf("notifications_created = %v, want 2", result.Detail["notifications_created"])
	}

	var rows []models.Notification
	if errFind := conn.Where("execution_id = ?", 11).Find(&rows).Error; errFind != nil {
		t.Fatalf("load notifications: %v", errFind)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Body != "Engineer was posted" {
		t.Fatalf("body = %q", rows[0].Body)
	}
	if len(gw.emailsSent) != 0 {
		t.Fatal("in_app channel should send no email")
	}
}

func TestNotificationZeroRecipientsSkips(t *testing.T) {
	conn := testDB(t)
	gw := newStubGateway() // resolves no recipients

	rule := notificationRule(`{"channel":"both","recipient_type":"assigned_user","title_template":"t","body_template":"b"}`)
	handler := NewNotificationHandler(conn, gw)

	result, err := handler.Execute(context.Background(), notificationRequest(gw, rule, 12), true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Skipped || result.SkipReason != models.SkipNoRecipients {
		t.Fatalf("result = %+v, want a no_recipients skip", result)
	}

	var count int64
	if errCount := conn.Model(&models.Notification{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatal("skip should write nothing")
	}
}

func TestNotificationPartialEmailFailureStaysSuccessful(t *testing.T) {
	conn := testDB(t)
	gw := newStubGateway()
	gw.recipients = []entity.Recipient{
		{Email: "ok@example.com"},
		{Email: "broken@example.com"},
	}
	gw.emailErr["broken@example.com"] = fmt.Errorf("mailbox unavailable")

	rule := notificationRule(`{"channel":"email","recipient_type":"watchers","title_template":"t","body_template":"b"}`)
	seedOwners(t, conn, rule, 13)
	handler := NewNotificationHandler(conn, gw)

	result, err := handler.Execute(context.Background(), notificationRequest(gw, rule, 13), true)
	if err != nil {
		t.Fatalf("one failing address must not fail the action: %v", err)
	}
	if result.Detail["emails_sent"] != 1 || result.Detail["emails_failed"] != 1 {
		t.Fatalf("detail = %v, want 1 sent and 1 failed", result.Detail)
	}

	var rows []models.ExternalEmail
	if errFind := conn.Where("execution_id = ?", 13).Order("id ASC").Find(&rows).Error; errFind != nil {
		t.Fatalf("load emails: %v", errFind)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Status != models.EmailSent || rows[0].SentAt == nil {
		t.Fatalf("first row = %+v, want sent", rows[0])
	}
	if rows[1].Status != models.EmailFailed || rows[1].ErrorMessage == "" {
		t.Fatalf("second row = %+v, want failed with message", rows[1])
	}
}

func TestNotificationDryRunResolvesButWritesNothing(t *testing.T) {
	conn := testDB(t)
	gw := newStubGateway()
	gw.recipients = []entity.Recipient{{UserID: userID(5), Email: "ok@example.com"}}

	rule := notificationRule(`{"channel":"both","recipient_type":"assigned_user","title_template":"New job","body_template":"{{title}}"}`)
	handler := NewNotificationHandler(conn, gw)

	result, err := handler.Execute(context.Background(), notificationRequest(gw, rule, 0), false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Preview["body"] != "Engineer" {
		t.Fatalf("preview body = %v", result.Preview["body"])
	}
	if len(gw.emailsSent) != 0 {
		t.Fatal("dry run should send nothing")
	}
	var count int64
	if errCount := conn.Model(&models.Notification{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatal("dry run should persist nothing")
	}
}

func TestNotificationTemplateReferenceSuppliesContent(t *testing.T) {
	conn := testDB(t)
	gw := newStubGateway()
	gw.recipients = []entity.Recipient{{UserID: userID(5)}}

	tmpl := models.NotificationTemplate{
		Name:    "job posted",
		Channel: models.ChannelInApp,
		Title:   "Template title",
		Body:    "Template: {{title}}",
	}
	if err := conn.Create(&tmpl).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}

	rule := notificationRule(`{"recipient_type":"assigned_user"}`)
	rule.NotificationTemplateID = &tmpl.ID
	seedOwners(t, conn, rule, 14)
	handler := NewNotificationHandler(conn, gw)

	result, err := handler.Execute(context.Background(), notificationRequest(gw, rule, 14), true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Preview["title"] != "Template title" {
		t.Fatalf("title = %v", result.Preview["title"])
	}
	if result.Preview["body"] != "Template: Engineer" {
		t.Fatalf("body = %v", result.Preview["body"])
	}

	var row models.Notification
	if errFind := conn.Where("execution_id = ?", 14).Take(&row).Error; errFind != nil {
		t.Fatalf("load notification: %v", errFind)
	}
	if row.Title != "Template title" {
		t.Fatalf("row title = %q", row.Title)
	}
}

func TestNotificationMissingRecipientTypeFails(t *testing.T) {
	conn := testDB(t)
	gw := newStubGateway()
	rule := notificationRule(`{"channel":"in_app","title_template":"t","body_template":"b"}`)
	handler := NewNotificationHandler(conn, gw)
	if _, err := handler.Execute(context.Background(), notificationRequest(gw, rule, 15), false); err == nil {
		t.Fatal("missing recipient_type should fail")
	}
}

func TestActivityExecute(t *testing.T) {
	gw := newStubGateway()
	rule := &models.Rule{
		ID:           4,
		TriggerModel: "job",
		ActionType:   models.ActionCreateActivity,
		ActionConfig: datatypes.JSON(`{"activity_type":"system","content_template":"Job {{title}} archived"}`),
	}
	handler := NewActivityHandler(gw)
	req := &Request{
		Rule:    rule,
		Record:  &entity.Record{ID: "17", Snapshot: map[string]any{"title": "Engineer"}},
		Catalog: jobCatalog(gw),
	}

	result, err := handler.Execute(context.Background(), req, false)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Preview["content"] != "Job Engineer archived" {
		t.Fatalf("content = %v", result.Preview["content"])
	}
	if gw.activityCalled != 0 {
		t.Fatal("dry run should not append an activity")
	}

	result, err = handler.Execute(context.Background(), req, true)
	if err != nil {
		t.Fatalf("live run: %v", err)
	}
	if gw.activityCalled != 1 {
		t.Fatalf("activity calls = %d, want 1", gw.activityCalled)
	}
	if result.Detail["activity_id"] != "act-1" {
		t.Fatalf("activity_id = %v", result.Detail["activity_id"])
	}
}
