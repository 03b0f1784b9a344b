package peopleforce

import (
	"encoding/json"
	"strings"
)

// EmployeeRef is the employee object nested in leave request payloads.
type EmployeeRef struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	ContactEmail string `json:"contact_email"`
}

type Employee struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	ContactEmail string `json:"contact_email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Status       string `json:"status"`
}

// Named is a nested {id, name} reference such as leave_type.
type Named struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (n *Named) label() string {
	if n == nil {
		return ""
	}
	if n.Name != "" {
		return n.Name
	}
	return n.Title
}

// LeaveRequest mirrors the leave_requests payload. Field names differ between
// API versions and webhook payloads, so the accessors pick whichever is set.
type LeaveRequest struct {
	ID          int64        `json:"id"`
	EmployeeID  int64        `json:"employee_id"`
	Employee    *EmployeeRef `json:"employee"`
	Email       string       `json:"email"`
	StartsOn    string       `json:"starts_on"`
	StartDate   string       `json:"start_date"`
	EndsOn      string       `json:"ends_on"`
	EndDate     string       `json:"end_date"`
	State       string       `json:"state"`
	Status      string       `json:"status"`
	LeaveType   *Named       `json:"leave_type"`
	TimeOffType *Named       `json:"time_off_type"`
	TypeName    string       `json:"type_name"`
}

func (r LeaveRequest) Start() string {
	return firstNonEmpty(r.StartsOn, r.StartDate)
}

func (r LeaveRequest) End() string {
	return firstNonEmpty(r.EndsOn, r.EndDate)
}

func (r LeaveRequest) EmployeeIdentifier() int64 {
	if r.EmployeeID != 0 {
		return r.EmployeeID
	}
	if r.Employee != nil {
		return r.Employee.ID
	}
	return 0
}

func (r LeaveRequest) EmployeeEmail() string {
	if r.Employee != nil {
		if email := firstNonEmpty(r.Employee.Email, r.Employee.ContactEmail); email != "" {
			return email
		}
	}
	return r.Email
}

func (r LeaveRequest) LeaveTypeName() string {
	return firstNonEmpty(r.LeaveType.label(), r.TimeOffType.label(), r.TypeName)
}

func (r LeaveRequest) CurrentState() string {
	return firstNonEmpty(r.State, r.Status)
}

// LeaveType is leave type metadata. Policy flags are resolved through the
// alias table in leave_types.go because their key names vary by deployment.
type LeaveType struct {
	ID               int64
	Name             string
	Description      string
	RequiresComment  bool
	SupportsOnDemand bool
}

// LeaveRequestQuery filters GET /leave_requests.
type LeaveRequestQuery struct {
	StartsOn string
	EndsOn   string
	States   []string
}

// CreateLeaveRequest is the POST /leave_requests body. OnDemand and
// SkipApproval are optional and not accepted by every deployment.
type CreateLeaveRequest struct {
	EmployeeID   int64  `json:"employee_id"`
	LeaveTypeID  int64  `json:"leave_type_id"`
	StartsOn     string `json:"starts_on"`
	EndsOn       string `json:"ends_on"`
	Description  string `json:"description,omitempty"`
	OnDemand     bool   `json:"on_demand,omitempty"`
	SkipApproval bool   `json:"skip_approval,omitempty"`
}

func (r CreateLeaveRequest) hasOptionalFields() bool {
	return r.OnDemand || r.SkipApproval
}

func (r CreateLeaveRequest) requiredOnly() CreateLeaveRequest {
	r.OnDemand = false
	r.SkipApproval = false
	return r
}

type pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// envelope is the {"data": ..., "metadata": ...} wrapper most endpoints use.
type envelope struct {
	Data     json.RawMessage `json:"data"`
	Metadata struct {
		Pagination *pagination `json:"pagination"`
	} `json:"metadata"`
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
