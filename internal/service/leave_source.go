// internal/service/leave_source.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leave-status-bot/internal/models"
	"leave-status-bot/pkg/peopleforce"

	"github.com/sirupsen/logrus"
)

// LeaveSource is the engine's view of the HR system.
type LeaveSource interface {
	FetchActiveApprovedLeave(ctx context.Context, today time.Time) ([]models.LeaveRecord, error)
	ResolveEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*models.Employee, error)
}

// peopleForceAPI is the subset of *peopleforce.Client used here.
type peopleForceAPI interface {
	ListEmployeesByEmail(ctx context.Context, email string) ([]peopleforce.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*peopleforce.Employee, error)
	ListLeaveTypes(ctx context.Context) ([]peopleforce.LeaveType, error)
	ListLeaveRequests(ctx context.Context, query peopleforce.LeaveRequestQuery) ([]peopleforce.LeaveRequest, error)
	CreateLeaveRequest(ctx context.Context, request peopleforce.CreateLeaveRequest) (*peopleforce.LeaveRequest, error)
}

// PeopleForceSource adapts the PeopleForce client to LeaveSource and HRSystem.
type PeopleForceSource struct {
	api    peopleForceAPI
	logger *logrus.Entry
}

func NewPeopleForceSource(api peopleForceAPI) *PeopleForceSource {
	return &PeopleForceSource{
		api:    api,
		logger: logrus.WithField("component", "leave_source"),
	}
}

// FetchActiveApprovedLeave asks for approved requests in [today, today] and
// keeps only those whose interval really contains today.
func (s *PeopleForceSource) FetchActiveApprovedLeave(ctx context.Context, today time.Time) ([]models.LeaveRecord, error) {
	day := models.DateOf(today)
	dayStr := day.Format(models.DateLayout)

	requests, err := s.api.ListLeaveRequests(ctx, peopleforce.LeaveRequestQuery{
		StartsOn: dayStr,
		EndsOn:   dayStr,
		States:   []string{models.LeaveStateApproved},
	})
	if err != nil {
		return nil, sourceUnavailable("list leave requests", err)
	}

	records := make([]models.LeaveRecord, 0, len(requests))
	for _, request := range requests {
		record, err := toLeaveRecord(request)
		if err != nil {
			s.logger.WithError(err).WithField("leave_request_id", request.ID).Warn("Skipping malformed leave request")
			continue
		}
		if !record.IsApproved() || !record.ActiveOn(day) {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// ResolveEmployeeByEmail matches email against work or contact email. If the
// API returns employees but none match exactly, the first one is used.
func (s *PeopleForceSource) ResolveEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	employees, err := s.api.ListEmployeesByEmail(ctx, email)
	if err != nil {
		return nil, sourceUnavailable("find employee by email", err)
	}
	if len(employees) == 0 {
		return nil, nil
	}

	wanted := NormalizeEmail(email)
	for _, employee := range employees {
		if NormalizeEmail(employee.Email) == wanted || NormalizeEmail(employee.ContactEmail) == wanted {
			return toEmployee(employee), nil
		}
	}

	s.logger.WithFields(logrus.Fields{
		"email":       email,
		"employee_id": employees[0].ID,
		"candidates":  len(employees),
	}).Warn("No exact email match, using first employee returned")
	return toEmployee(employees[0]), nil
}

func (s *PeopleForceSource) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	employee, err := s.api.GetEmployee(ctx, id)
	if peopleforce.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, sourceUnavailable("get employee", err)
	}
	return toEmployee(*employee), nil
}

func (s *PeopleForceSource) ListLeaveTypes(ctx context.Context) ([]models.LeaveType, error) {
	leaveTypes, err := s.api.ListLeaveTypes(ctx)
	if err != nil {
		return nil, sourceUnavailable("list leave types", err)
	}

	result := make([]models.LeaveType, 0, len(leaveTypes))
	for _, leaveType := range leaveTypes {
		result = append(result, models.LeaveType{
			ID:               leaveType.ID,
			Name:             leaveType.Name,
			Description:      leaveType.Description,
			RequiresComment:  leaveType.RequiresComment,
			SupportsOnDemand: leaveType.SupportsOnDemand,
		})
	}
	return result, nil
}

// CreateLeaveRequest submits input and returns the created request's state.
// API rejections come back as *RemoteRejectedError.
func (s *PeopleForceSource) CreateLeaveRequest(ctx context.Context, input models.LeaveRequestInput) (string, error) {
	created, err := s.api.CreateLeaveRequest(ctx, peopleforce.CreateLeaveRequest{
		EmployeeID:  input.EmployeeID,
		LeaveTypeID: input.LeaveTypeID,
		StartsOn:    input.StartDate.Format(models.DateLayout),
		EndsOn:      input.EndDate.Format(models.DateLayout),
		Description: input.Comment,
		OnDemand:    input.OnDemand,
	})
	if err != nil {
		var apiError *peopleforce.APIError
		if errors.As(err, &apiError) && apiError.StatusCode < 500 {
			return "", &RemoteRejectedError{Message: apiError.UserMessage()}
		}
		return "", sourceUnavailable("create leave request", err)
	}
	return created.CurrentState(), nil
}

func toLeaveRecord(request peopleforce.LeaveRequest) (models.LeaveRecord, error) {
	start, err := models.ParseDate(request.Start())
	if err != nil {
		return models.LeaveRecord{}, fmt.Errorf("start date %q: %w", request.Start(), err)
	}
	end, err := models.ParseDate(request.End())
	if err != nil {
		return models.LeaveRecord{}, fmt.Errorf("end date %q: %w", request.End(), err)
	}
	if end.Before(start) {
		return models.LeaveRecord{}, fmt.Errorf("end date %s before start date %s", request.End(), request.Start())
	}

	state := request.CurrentState()
	if state == "" {
		// the listing was already filtered to approved server side
		state = models.LeaveStateApproved
	}

	return models.LeaveRecord{
		ID:            request.ID,
		EmployeeID:    request.EmployeeIdentifier(),
		EmployeeEmail: request.EmployeeEmail(),
		LeaveTypeName: request.LeaveTypeName(),
		StartDate:     start,
		EndDate:       end,
		State:         state,
	}, nil
}

func toEmployee(employee peopleforce.Employee) *models.Employee {
	return &models.Employee{
		ID:           employee.ID,
		Email:        employee.Email,
		ContactEmail: employee.ContactEmail,
		FirstName:    employee.FirstName,
		LastName:     employee.LastName,
	}
}
