// internal/models/leave.go
package models

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the HR system and Slack date pickers.
const DateLayout = "2006-01-02"

const LeaveStateApproved = "approved"

// LeaveRecord is one HR leave request relevant to a given day.
// StartDate and EndDate are calendar dates (midnight UTC), both inclusive.
type LeaveRecord struct {
	ID            int64     `json:"id"`
	EmployeeID    int64     `json:"employee_id"`
	EmployeeEmail string    `json:"employee_email,omitempty"`
	LeaveTypeName string    `json:"leave_type_name"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	State         string    `json:"state"`
}

// ActiveOn reports whether day falls inside [StartDate, EndDate].
func (r LeaveRecord) ActiveOn(day time.Time) bool {
	day = DateOf(day)
	return !day.Before(DateOf(r.StartDate)) && !day.After(DateOf(r.EndDate))
}

// IsApproved reports whether the record is in the approved state.
func (r LeaveRecord) IsApproved() bool {
	return strings.EqualFold(r.State, LeaveStateApproved)
}

type Employee struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	ContactEmail string `json:"contact_email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

// PrimaryEmail returns the work email, falling back to the contact email.
func (e Employee) PrimaryEmail() string {
	if e.Email != "" {
		return e.Email
	}
	return e.ContactEmail
}

// LeaveType is HR leave-type metadata with the policy flags the request form cares about.
type LeaveType struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	RequiresComment  bool   `json:"requires_comment"`
	SupportsOnDemand bool   `json:"supports_on_demand"`
}

// LeaveRequestInput is what the request form submits to the HR system.
type LeaveRequestInput struct {
	EmployeeID  int64
	LeaveTypeID int64
	StartDate   time.Time
	EndDate     time.Time
	Comment     string
	OnDemand    bool
}

// DateOf truncates t to its calendar date in t's own location, returned as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date. Longer timestamps are cut to their date part.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(DateLayout) {
		value = value[:len(DateLayout)]
	}
	return time.Parse(DateLayout, value)
}
