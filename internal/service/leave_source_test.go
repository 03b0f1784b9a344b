package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"leave-status-bot/internal/models"
	"leave-status-bot/pkg/peopleforce"
)

type fakePeopleForce struct {
	employees []peopleforce.Employee
	requests  []peopleforce.LeaveRequest
	err       error
	createErr error

	query peopleforce.LeaveRequestQuery
}

func (f *fakePeopleForce) ListEmployeesByEmail(ctx context.Context, email string) ([]peopleforce.Employee, error) {
	return f.employees, f.err
}

func (f *fakePeopleForce) GetEmployee(ctx context.Context, id int64) (*peopleforce.Employee, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, employee := range f.employees {
		if employee.ID == id {
			return &employee, nil
		}
	}
	return nil, &peopleforce.APIError{StatusCode: 404, Message: "Not found"}
}

func (f *fakePeopleForce) ListLeaveTypes(ctx context.Context) ([]peopleforce.LeaveType, error) {
	return nil, f.err
}

func (f *fakePeopleForce) ListLeaveRequests(ctx context.Context, query peopleforce.LeaveRequestQuery) ([]peopleforce.LeaveRequest, error) {
	f.query = query
	return f.requests, f.err
}

func (f *fakePeopleForce) CreateLeaveRequest(ctx context.Context, request peopleforce.CreateLeaveRequest) (*peopleforce.LeaveRequest, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &peopleforce.LeaveRequest{ID: 99, State: "pending"}, nil
}

func TestPeopleForceSource_KeepsOnlyActiveApproved(t *testing.T) {
	api := &fakePeopleForce{requests: []peopleforce.LeaveRequest{
		{ID: 1, EmployeeID: 7, StartsOn: "2026-11-09", EndsOn: "2026-11-11", State: "approved"},
		{ID: 2, EmployeeID: 7, StartsOn: "2026-11-11", EndsOn: "2026-11-12", State: "approved"},
		{ID: 3, EmployeeID: 8, StartsOn: "2026-11-09", EndsOn: "2026-11-11", State: "pending"},
		{ID: 4, EmployeeID: 9, StartDate: "2026-11-10", EndDate: "2026-11-10"},
		{ID: 5, EmployeeID: 9, StartsOn: "not a date", EndsOn: "2026-11-10", State: "approved"},
	}}
	source := NewPeopleForceSource(api)

	records, err := source.FetchActiveApprovedLeave(context.Background(), time.Date(2026, 11, 10, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchActiveApprovedLeave: %v", err)
	}

	var ids []int64
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 4 {
		t.Errorf("kept ids %v, want [1 4]", ids)
	}
	if api.query.StartsOn != "2026-11-10" || api.query.EndsOn != "2026-11-10" {
		t.Errorf("query = %+v", api.query)
	}
	if records[1].State != models.LeaveStateApproved {
		t.Errorf("empty state should read as approved, got %q", records[1].State)
	}
}

func TestPeopleForceSource_ResolveEmployeeByEmail(t *testing.T) {
	api := &fakePeopleForce{employees: []peopleforce.Employee{
		{ID: 7, Email: "someone@co.com"},
		{ID: 8, Email: "jane.doe@co.com", ContactEmail: "jane@CO.com"},
	}}
	source := NewPeopleForceSource(api)

	employee, err := source.ResolveEmployeeByEmail(context.Background(), "Jane@co.com")
	if err != nil {
		t.Fatalf("ResolveEmployeeByEmail: %v", err)
	}
	if employee == nil || employee.ID != 8 {
		t.Fatalf("employee = %+v, want id 8", employee)
	}

	employee, err = source.ResolveEmployeeByEmail(context.Background(), "nobody@co.com")
	if err != nil {
		t.Fatalf("ResolveEmployeeByEmail: %v", err)
	}
	if employee == nil || employee.ID != 7 {
		t.Errorf("without an exact match the first employee is used, got %+v", employee)
	}

	api.employees = nil
	employee, err = source.ResolveEmployeeByEmail(context.Background(), "jane@co.com")
	if err != nil || employee != nil {
		t.Errorf("empty result = %+v, %v; want nil, nil", employee, err)
	}
}

func TestPeopleForceSource_CreateRejectionIsRemoteRejected(t *testing.T) {
	api := &fakePeopleForce{createErr: &peopleforce.APIError{
		StatusCode: 422,
		Message:    "Validation failed",
		Errors:     []string{"Dates overlap an existing request"},
	}}
	source := NewPeopleForceSource(api)

	_, err := source.CreateLeaveRequest(context.Background(), models.LeaveRequestInput{
		EmployeeID:  7,
		LeaveTypeID: 1,
		StartDate:   time.Date(2026, 11, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 11, 12, 0, 0, 0, 0, time.UTC),
	})

	var rejected *RemoteRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want RemoteRejectedError", err)
	}
	if rejected.Message != "Validation failed: Dates overlap an existing request" {
		t.Errorf("message = %q", rejected.Message)
	}
	if errors.Is(err, ErrSourceUnavailable) {
		t.Error("a rejection is not a source failure")
	}

	api.createErr = &peopleforce.APIError{StatusCode: 503, Message: "Service Unavailable"}
	_, err = source.CreateLeaveRequest(context.Background(), models.LeaveRequestInput{EmployeeID: 7, LeaveTypeID: 1})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("5xx err = %v, want ErrSourceUnavailable", err)
	}
}

func TestPeopleForceSource_RemoteErrorsAreSourceUnavailable(t *testing.T) {
	api := &fakePeopleForce{err: errors.New("connection refused")}
	source := NewPeopleForceSource(api)
	ctx := context.Background()

	if _, err := source.FetchActiveApprovedLeave(ctx, time.Now()); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("FetchActiveApprovedLeave err = %v", err)
	}
	if _, err := source.ResolveEmployeeByEmail(ctx, "jane@co.com"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("ResolveEmployeeByEmail err = %v", err)
	}
	if _, err := source.GetEmployee(ctx, 7); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("GetEmployee err = %v", err)
	}
	if _, err := source.ListLeaveTypes(ctx); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("ListLeaveTypes err = %v", err)
	}
}

func TestPeopleForceSource_GetEmployeeNotFound(t *testing.T) {
	source := NewPeopleForceSource(&fakePeopleForce{})

	employee, err := source.GetEmployee(context.Background(), 42)
	if err != nil || employee != nil {
		t.Errorf("GetEmployee = %+v, %v; want nil, nil", employee, err)
	}
}
