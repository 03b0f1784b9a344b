// internal/handler/server.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"leave-status-bot/internal/service"

	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps inbound webhook and Slack payloads.
const maxBodyBytes = 1 << 20

// Server serves the HR webhook, the health probe and, when configured,
// the Slack slash commands and interactivity endpoints.
type Server struct {
	trigger     service.Trigger
	slack       *SlackHandler
	baseCtx     context.Context
	passTimeout time.Duration
	now         func() time.Time
	logger      *logrus.Entry
}

// NewServer builds the HTTP surface. Passes started by the webhook run on
// baseCtx, not on the request context, since they outlive the request.
func NewServer(baseCtx context.Context, trigger service.Trigger, slackHandler *SlackHandler, passTimeout time.Duration) *Server {
	return &Server{
		trigger:     trigger,
		slack:       slackHandler,
		baseCtx:     baseCtx,
		passTimeout: passTimeout,
		now:         time.Now,
		logger:      logrus.WithField("component", "http"),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.Health)
	mux.HandleFunc("POST /webhook/peopleforce", s.PeopleForceWebhook)
	if s.slack != nil {
		mux.HandleFunc("POST /slack/commands", s.slack.Commands)
		mux.HandleFunc("POST /slack/interactions", s.slack.Interactions)
	}
	return mux
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

// runPass starts a pass detached from any request.
func (s *Server) runPass(trigger string) {
	defer service.RecoverAndLog(s.logger.WithField("trigger", trigger), "Sync")
	ctx := s.baseCtx
	if s.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.passTimeout)
		defer cancel()
	}
	// the runner logs and journals failures
	_, _ = s.trigger.Run(ctx, trigger)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}
