package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/models"
	"github.com/recruitflow/automation/internal/template"
)

// NotificationHandler fans a rendered notification out to the recipients the
// entity layer resolves. In-app rows are owned by this engine; email delivery
// goes through the gateway and is awaited per recipient, so one address
// failing never blocks or fails the others.
type NotificationHandler struct {
	db      *gorm.DB
	gateway entity.Gateway
}

// NewNotificationHandler builds the handler.
func NewNotificationHandler(db *gorm.DB, gateway entity.Gateway) *NotificationHandler {
	return &NotificationHandler{db: db, gateway: gateway}
}

// Type implements Handler.
func (h *NotificationHandler) Type() models.ActionType { return models.ActionSendNotification }

// Execute implements Handler.
func (h *NotificationHandler) Execute(ctx context.Context, req *Request, commit bool) (*Result, error) {
	cfg, err := Decode(req.Rule.ActionType, req.Rule.ActionConfig)
	if err != nil {
		return nil, err
	}
	notif := cfg.(*NotificationConfig)

	titleTmpl := notif.TitleTemplate
	bodyTmpl := notif.BodyTemplate
	channel := notif.Channel

	// A referenced template is the rendering source; the rule config may
	// still override the channel.
	if req.Rule.NotificationTemplateID != nil {
		var tmpl models.NotificationTemplate
		if errFind := h.db.WithContext(ctx).First(&tmpl, *req.Rule.NotificationTemplateID).Error; errFind != nil {
			return nil, fmt.Errorf("action: load notification template %d: %w", *req.Rule.NotificationTemplateID, errFind)
		}
		titleTmpl = tmpl.Title
		bodyTmpl = tmpl.Body
		if channel == "" {
			channel = tmpl.Channel
		}
	}
	if channel == "" {
		channel = models.ChannelInApp
	}
	if channel != models.ChannelEmail && channel != models.ChannelInApp && channel != models.ChannelBoth {
		return nil, fmt.Errorf("action: unknown notification channel %q", channel)
	}
	if strings.TrimSpace(notif.RecipientType) == "" {
		return nil, fmt.Errorf("action: notification recipient_type is missing")
	}

	snapshot := renderSnapshot(req.Record)
	title := template.Render(titleTmpl, snapshot, req.Catalog)
	body := template.Render(bodyTmpl, snapshot, req.Catalog)

	recipients, err := h.gateway.ResolveRecipients(ctx, notif.RecipientType, req.Rule.TriggerModel, req.Record)
	if err != nil {
		return nil, fmt.Errorf("action: resolve recipients %q: %w", notif.RecipientType, err)
	}

	result := &Result{
		Preview: map[string]any{
			"channel":        string(channel),
			"recipient_type": notif.RecipientType,
			"recipients":     recipients,
			"title":          title,
			"body":           body,
		},
	}
	if len(recipients) == 0 {
		result.Skipped = true
		result.SkipReason = models.SkipNoRecipients
		return result, nil
	}
	if !commit {
		return result, nil
	}

	created, sent, failed := 0, 0, 0
	for _, recipient := range recipients {
		if recipient.UserID != nil && channel.InApp() {
			row := models.Notification{
				ExecutionID: req.ExecutionID,
				RuleID:      req.Rule.ID,
				UserID:      *recipient.UserID,
				Title:       title,
				Body:        body,
			}
			if errCreate := h.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
				return result, fmt.Errorf("action: create notification: %w", errCreate)
			}
			created++
		}
		if channel.Email() && strings.TrimSpace(recipient.Email) != "" {
			email := models.ExternalEmail{
				ExecutionID: req.ExecutionID,
				RuleID:      req.Rule.ID,
				Address:     recipient.Email,
				Subject:     title,
				Body:        body,
			}
			if errSend := h.gateway.SendEmail(ctx, recipient.Email, title, body); errSend != nil {
				email.Status = models.EmailFailed
				email.ErrorMessage = errSend.Error()
				failed++
				log.WithError(errSend).Warnf("notification: email to %s failed (rule %d)", recipient.Email, req.Rule.ID)
			} else {
				now := time.Now().UTC()
				email.Status = models.EmailSent
				email.SentAt = &now
				sent++
			}
			if errCreate := h.db.WithContext(ctx).Create(&email).Error; errCreate != nil {
				return result, fmt.Errorf("action: record external email: %w", errCreate)
			}
		}
	}

	result.Detail = map[string]any{
		"notifications_created": created,
		"emails_sent":           sent,
		"emails_failed":         failed,
	}
	return result, nil
}
