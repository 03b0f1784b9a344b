// internal/handler/webhook.go
package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"leave-status-bot/internal/models"

	"github.com/sirupsen/logrus"
)

// Event type and payload keys differ between PeopleForce webhook versions.
var (
	eventTypeKeys = []string{"action", "event", "type", "topic"}
	payloadKeys   = []string{"data", "leave_request"}
	eventKeywords = []string{"leave", "time_off"}
)

type webhookEvent struct {
	Type    string
	Payload map[string]any
}

// PeopleForceWebhook acknowledges every well-formed delivery with 200 OK
// before any reconciliation work starts. Leave events then trigger one pass.
func (s *Server) PeopleForceWebhook(w http.ResponseWriter, r *http.Request) {
	acknowledged := false
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.WithField("panic", rec).Error("Webhook handler panicked")
			if !acknowledged {
				writeText(w, http.StatusInternalServerError, "Error processing webhook")
			}
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Invalid body")
		return
	}

	event, err := parseWebhookEvent(body)
	if err != nil {
		s.logger.WithError(err).Warn("Rejected webhook body")
		writeText(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	writeText(w, http.StatusOK, "OK")
	acknowledged = true

	log := s.logger.WithFields(webhookFields(event))
	if !event.IsLeaveEvent() {
		log.Info("Ignoring non-leave webhook event")
		return
	}

	log.Info("Leave webhook received, triggering sync")
	go s.runPass(models.TriggerWebhook)
}

func parseWebhookEvent(body []byte) (*webhookEvent, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode webhook: body is not an object")
	}

	event := &webhookEvent{Payload: raw}
	for _, key := range eventTypeKeys {
		if value, ok := raw[key].(string); ok && value != "" {
			event.Type = value
			break
		}
	}
	for _, key := range payloadKeys {
		if payload, ok := raw[key].(map[string]any); ok {
			event.Payload = payload
			break
		}
	}
	return event, nil
}

func (e *webhookEvent) IsLeaveEvent() bool {
	eventType := strings.ToLower(e.Type)
	for _, keyword := range eventKeywords {
		if strings.Contains(eventType, keyword) {
			return true
		}
	}
	return false
}

// webhookFields picks the request id, employee id and state out of the
// payload, looking inside a JSON:API style data.attributes object too.
func webhookFields(event *webhookEvent) logrus.Fields {
	fields := logrus.Fields{"event_type": event.Type}

	payload := event.Payload
	attributes := map[string]any{}
	if nested, ok := payload["data"].(map[string]any); ok {
		if id, ok := nested["id"]; ok {
			fields["leave_request_id"] = id
		}
		if attrs, ok := nested["attributes"].(map[string]any); ok {
			attributes = attrs
		}
	}

	for _, source := range []map[string]any{attributes, payload} {
		if _, done := fields["leave_request_id"]; !done {
			if id, ok := source["id"]; ok {
				fields["leave_request_id"] = id
			}
		}
		if _, done := fields["employee_id"]; !done {
			if id, ok := source["employee_id"]; ok {
				fields["employee_id"] = id
			}
		}
		if _, done := fields["state"]; !done {
			if state, ok := source["state"]; ok {
				fields["state"] = state
			}
		}
	}
	return fields
}
