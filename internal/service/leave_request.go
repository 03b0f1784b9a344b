// internal/service/leave_request.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"leave-status-bot/internal/models"

	"github.com/sirupsen/logrus"
)

// HRSystem is the HR side of the request form.
type HRSystem interface {
	ResolveEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error)
	ListLeaveTypes(ctx context.Context) ([]models.LeaveType, error)
	CreateLeaveRequest(ctx context.Context, input models.LeaveRequestInput) (string, error)
}

// AccountEmailLookup returns the profile email of a destination account.
type AccountEmailLookup interface {
	UserEmail(ctx context.Context, accountID string) (string, error)
}

// DefaultLeaveTypes back the form when the HR lookup is slow or empty.
var DefaultLeaveTypes = []models.LeaveType{
	{ID: 1, Name: "Vacation"},
	{ID: 2, Name: "Sick Leave"},
	{ID: 3, Name: "Personal"},
	{ID: 4, Name: "Other"},
}

// Form field names, shared with the modal builder.
const (
	FieldLeaveType = "leave_type"
	FieldStartDate = "start_date"
	FieldEndDate   = "end_date"
	FieldComment   = "comment"
)

// LeaveRequestForm is the raw modal submission.
type LeaveRequestForm struct {
	LeaveTypeID string
	StartDate   string
	EndDate     string
	Comment     string
	OnDemand    bool
}

// FormFields is which optional inputs the form shows and requires.
type FormFields struct {
	CommentRequired bool
	ShowOnDemand    bool
}

// FormSpec derives the form layout from the selected leave type's policy.
// A nil policy (nothing selected yet, or unknown type) gives the plain form.
func FormSpec(policy *models.LeaveType) FormFields {
	if policy == nil {
		return FormFields{}
	}
	return FormFields{
		CommentRequired: policy.RequiresComment,
		ShowOnDemand:    policy.SupportsOnDemand,
	}
}

type SubmissionReceipt struct {
	Email     string
	StartDate time.Time
	EndDate   time.Time
	State     string
}

type LeaveRequestService struct {
	hr           HRSystem
	accounts     AccountEmailLookup
	overrides    *OverrideStore
	typesTimeout time.Duration
	logger       *logrus.Entry

	mu         sync.RWMutex
	leaveTypes []models.LeaveType
}

func NewLeaveRequestService(hr HRSystem, accounts AccountEmailLookup, overrides *OverrideStore, typesTimeout time.Duration) *LeaveRequestService {
	if overrides == nil {
		overrides = NewOverrideStore()
	}
	if typesTimeout <= 0 {
		typesTimeout = 3 * time.Second
	}
	return &LeaveRequestService{
		hr:           hr,
		accounts:     accounts,
		overrides:    overrides,
		typesTimeout: typesTimeout,
		logger:       logrus.WithField("component", "leave_request"),
	}
}

// LeaveTypeOptions fetches leave types within the lookup budget. On timeout,
// error or an empty list it returns DefaultLeaveTypes and fromDefaults=true.
func (s *LeaveRequestService) LeaveTypeOptions(ctx context.Context) (leaveTypes []models.LeaveType, fromDefaults bool) {
	ctx, cancel := context.WithTimeout(ctx, s.typesTimeout)
	defer cancel()

	type lookup struct {
		leaveTypes []models.LeaveType
		err        error
	}
	done := make(chan lookup, 1)
	go func() {
		leaveTypes, err := s.hr.ListLeaveTypes(ctx)
		done <- lookup{leaveTypes, err}
	}()

	select {
	case <-ctx.Done():
		s.logger.WithField("timeout", s.typesTimeout).Warn("Leave type lookup timed out, using defaults")
		return DefaultLeaveTypes, true
	case result := <-done:
		if result.err != nil {
			s.logger.WithError(result.err).Warn("Leave type lookup failed, using defaults")
			return DefaultLeaveTypes, true
		}
		if len(result.leaveTypes) == 0 {
			return DefaultLeaveTypes, true
		}

		s.mu.Lock()
		s.leaveTypes = result.leaveTypes
		s.mu.Unlock()
		return result.leaveTypes, false
	}
}

// CachedLeaveTypes returns the last fetched leave types without calling the HR system.
func (s *LeaveRequestService) CachedLeaveTypes() []models.LeaveType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.leaveTypes) == 0 {
		return DefaultLeaveTypes
	}
	return s.leaveTypes
}

// Policy returns cached metadata for a leave type id, or nil if unknown.
func (s *LeaveRequestService) Policy(leaveTypeID string) *models.LeaveType {
	id, err := strconv.ParseInt(strings.TrimSpace(leaveTypeID), 10, 64)
	if err != nil {
		return nil
	}
	for _, leaveType := range s.CachedLeaveTypes() {
		if leaveType.ID == id {
			found := leaveType
			return &found
		}
	}
	return nil
}

// Validate checks the form locally. It never calls the HR system.
func (s *LeaveRequestService) Validate(form LeaveRequestForm) (models.LeaveRequestInput, error) {
	var input models.LeaveRequestInput

	leaveTypeID, err := strconv.ParseInt(strings.TrimSpace(form.LeaveTypeID), 10, 64)
	if err != nil || leaveTypeID <= 0 {
		return input, &ValidationError{Field: FieldLeaveType, Message: "Please select a leave type."}
	}

	start, err := models.ParseDate(form.StartDate)
	if err != nil {
		return input, &ValidationError{Field: FieldStartDate, Message: "Please pick a start date."}
	}
	end, err := models.ParseDate(form.EndDate)
	if err != nil {
		return input, &ValidationError{Field: FieldEndDate, Message: "Please pick an end date."}
	}
	if end.Before(start) {
		return input, &ValidationError{Field: FieldEndDate, Message: "End date cannot be before the start date."}
	}

	comment := strings.TrimSpace(form.Comment)
	fields := FormSpec(s.Policy(form.LeaveTypeID))
	if fields.CommentRequired && comment == "" {
		return input, &ValidationError{Field: FieldComment, Message: "This leave type requires a comment."}
	}

	return models.LeaveRequestInput{
		LeaveTypeID: leaveTypeID,
		StartDate:   start,
		EndDate:     end,
		Comment:     comment,
		OnDemand:    fields.ShowOnDemand && form.OnDemand,
	}, nil
}

// Submit validates the form, resolves the submitter to an HR employee,
// remembers the confirmed email/account pair and creates the request.
func (s *LeaveRequestService) Submit(ctx context.Context, accountID string, form LeaveRequestForm) (*SubmissionReceipt, error) {
	input, err := s.Validate(form)
	if err != nil {
		return nil, err
	}

	email, err := s.accounts.UserEmail(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("could not read your Slack profile: %w", err)
	}
	if email == "" {
		return nil, errors.New("could not find your email address. Please make sure your Slack profile has an email")
	}

	employee, err := s.hr.ResolveEmployeeByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, &RemoteRejectedError{Message: fmt.Sprintf("Employee not found in PeopleForce for email: %s", email)}
	}

	s.overrides.Remember(email, accountID)

	input.EmployeeID = employee.ID
	state, err := s.hr.CreateLeaveRequest(ctx, input)
	if err != nil {
		return nil, err
	}
	if state == "" {
		state = "Pending approval"
	}

	s.logger.WithFields(logrus.Fields{
		"email":      email,
		"account_id": accountID,
		"start_date": input.StartDate.Format(models.DateLayout),
		"end_date":   input.EndDate.Format(models.DateLayout),
	}).Info("Leave request created")

	return &SubmissionReceipt{
		Email:     email,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		State:     state,
	}, nil
}
