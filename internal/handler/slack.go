// internal/handler/slack.go
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"leave-status-bot/internal/models"
	"leave-status-bot/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// SlackAPI is the part of the Slack client the command handlers use.
type SlackAPI interface {
	PostDirectMessage(ctx context.Context, userID, text string) error
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error
	UpdateView(ctx context.Context, viewID, hash string, view slack.ModalViewRequest) error
}

// LeaveRequests is the request form flow; *service.LeaveRequestService implements it.
type LeaveRequests interface {
	LeaveTypeOptions(ctx context.Context) ([]models.LeaveType, bool)
	CachedLeaveTypes() []models.LeaveType
	Policy(leaveTypeID string) *models.LeaveType
	Validate(form service.LeaveRequestForm) (models.LeaveRequestInput, error)
	Submit(ctx context.Context, accountID string, form service.LeaveRequestForm) (*service.SubmissionReceipt, error)
}

// SlackHandler serves slash commands and interactivity. Slack expects an
// answer within three seconds, so anything slower runs after the response.
type SlackHandler struct {
	api           SlackAPI
	requests      LeaveRequests
	trigger       service.Trigger
	signingSecret string
	baseCtx       context.Context
	passTimeout   time.Duration
	location      *time.Location
	now           func() time.Time
	logger        *logrus.Entry
}

func NewSlackHandler(baseCtx context.Context, api SlackAPI, requests LeaveRequests, trigger service.Trigger, signingSecret string, passTimeout time.Duration, location *time.Location) *SlackHandler {
	if location == nil {
		location = time.Local
	}
	logger := logrus.WithField("component", "slack")
	if signingSecret == "" {
		logger.Warn("SLACK_SIGNING_SECRET is empty, Slack requests are not verified")
	}
	return &SlackHandler{
		api:           api,
		requests:      requests,
		trigger:       trigger,
		signingSecret: signingSecret,
		baseCtx:       baseCtx,
		passTimeout:   passTimeout,
		location:      location,
		now:           time.Now,
		logger:        logger,
	}
}

// readVerified reads the body and checks the Slack request signature.
// The body is restored so form parsing still works.
func (h *SlackHandler) readVerified(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if h.signingSecret == "" {
		return nil
	}
	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}

func (h *SlackHandler) Commands(w http.ResponseWriter, r *http.Request) {
	if err := h.readVerified(w, r); err != nil {
		h.logger.WithError(err).Warn("Rejected unverified slash command")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	command, err := slack.SlashCommandParse(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"command": command.Command,
		"user_id": command.UserID,
	}).Info("Slash command received")

	switch command.Command {
	case "/request-time-off":
		w.WriteHeader(http.StatusOK)
		go h.openRequestForm(command.UserID, command.TriggerID)
	case "/sync-statuses":
		w.WriteHeader(http.StatusOK)
		go h.manualSync(command.UserID)
	default:
		writeText(w, http.StatusOK, fmt.Sprintf("Unknown command %s", command.Command))
	}
}

func (h *SlackHandler) openRequestForm(userID, triggerID string) {
	defer service.RecoverAndLog(h.logger, "Opening time-off modal")
	ctx := h.baseCtx

	leaveTypes, fromDefaults := h.requests.LeaveTypeOptions(ctx)
	today := h.now().In(h.location).Format(models.DateLayout)
	view := BuildLeaveRequestModal(leaveTypes, ModalState{StartDate: today, EndDate: today}, service.FormFields{})

	if err := h.api.OpenView(ctx, triggerID, view); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to open time-off modal")
		h.directMessage(ctx, userID, "❌ Sorry, I couldn't open the time-off request form. Please try again later.")
		return
	}
	h.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"default_types": fromDefaults,
	}).Info("Time-off modal opened")
}

func (h *SlackHandler) manualSync(userID string) {
	defer service.RecoverAndLog(h.logger.WithField("user_id", userID), "Manual sync")

	ctx := h.baseCtx
	if h.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.passTimeout)
		defer cancel()
	}

	h.directMessage(ctx, userID, "🔄 Starting manual sync...")
	result, err := h.trigger.Run(ctx, models.TriggerManual)
	if err != nil {
		h.directMessage(ctx, userID, fmt.Sprintf("❌ Sync failed: %s", err.Error()))
		return
	}
	h.directMessage(ctx, userID, formatPassResult(result))
}

func (h *SlackHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	if err := h.readVerified(w, r); err != nil {
		h.logger.WithError(err).Warn("Rejected unverified interaction")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &callback); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch callback.Type {
	case slack.InteractionTypeViewSubmission:
		h.submitRequestForm(w, callback)
	case slack.InteractionTypeBlockActions:
		w.WriteHeader(http.StatusOK)
		if h.leaveTypeChanged(callback) {
			go h.refreshRequestForm(callback)
		}
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// submitRequestForm answers invalid input inline in the modal. Valid input
// closes the modal and the result arrives by direct message.
func (h *SlackHandler) submitRequestForm(w http.ResponseWriter, callback slack.InteractionCallback) {
	if callback.View.CallbackID != leaveRequestCallbackID {
		w.WriteHeader(http.StatusOK)
		return
	}

	_, form := readModalState(callback.View)
	if _, err := h.requests.Validate(form); err != nil {
		var validation *service.ValidationError
		if errors.As(err, &validation) {
			block, ok := fieldBlocks[validation.Field]
			if !ok {
				block = blockLeaveType
			}
			writeJSON(w, http.StatusOK, slack.NewErrorsViewSubmissionResponse(map[string]string{
				block: validation.Message,
			}))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	go h.createLeaveRequest(callback.User.ID, form)
}

func (h *SlackHandler) createLeaveRequest(userID string, form service.LeaveRequestForm) {
	defer service.RecoverAndLog(h.logger.WithField("user_id", userID), "Time-off request")
	ctx := h.baseCtx

	receipt, err := h.requests.Submit(ctx, userID, form)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to create time-off request")
		h.directMessage(ctx, userID, fmt.Sprintf(
			"❌ *Failed to create time-off request*\n\n%s\n\nPlease try again or contact your administrator.", err.Error()))
		return
	}

	h.directMessage(ctx, userID, fmt.Sprintf(
		"✅ *Time-off request submitted!*\n\n📅 Dates: %s → %s\n📋 Status: %s\n\nYour request has been sent to PeopleForce and will be reviewed by your manager.",
		receipt.StartDate.Format("Jan 2, 2006"),
		receipt.EndDate.Format("Jan 2, 2006"),
		receipt.State,
	))
}

func (h *SlackHandler) leaveTypeChanged(callback slack.InteractionCallback) bool {
	if callback.View.CallbackID != leaveRequestCallbackID {
		return false
	}
	for _, action := range callback.ActionCallback.BlockActions {
		if action.ActionID == service.FieldLeaveType {
			return true
		}
	}
	return false
}

// refreshRequestForm rebuilds the modal for the newly selected leave type.
func (h *SlackHandler) refreshRequestForm(callback slack.InteractionCallback) {
	defer service.RecoverAndLog(h.logger, "Time-off modal refresh")
	state, _ := readModalState(callback.View)
	for _, action := range callback.ActionCallback.BlockActions {
		if action.ActionID == service.FieldLeaveType {
			state.LeaveTypeID = action.SelectedOption.Value
		}
	}

	fields := service.FormSpec(h.requests.Policy(state.LeaveTypeID))
	view := BuildLeaveRequestModal(h.requests.CachedLeaveTypes(), state, fields)
	if err := h.api.UpdateView(h.baseCtx, callback.View.ID, callback.View.Hash, view); err != nil {
		h.logger.WithError(err).WithField("view_id", callback.View.ID).Warn("Failed to update time-off modal")
	}
}

func (h *SlackHandler) directMessage(ctx context.Context, userID, text string) {
	if err := h.api.PostDirectMessage(ctx, userID, text); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to send direct message")
	}
}

func formatPassResult(result models.PassResult) string {
	return fmt.Sprintf("✅ Sync complete!\n\n• Updated: %d\n• Cleared: %d\n• Errors: %d",
		result.Updated, result.Cleared, result.Errors)
}
