package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"leave-status-bot/internal/models"
)

type fakeSource struct {
	mu        sync.Mutex
	fetches   [][]models.LeaveRecord // successive FetchActiveApprovedLeave results; last one repeats
	fetchErr  error
	employees map[int64]*models.Employee
	calls     int
}

func (s *fakeSource) FetchActiveApprovedLeave(ctx context.Context, today time.Time) ([]models.LeaveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if len(s.fetches) == 0 {
		return nil, nil
	}
	idx := s.calls - 1
	if idx >= len(s.fetches) {
		idx = len(s.fetches) - 1
	}
	var active []models.LeaveRecord
	for _, record := range s.fetches[idx] {
		if record.ActiveOn(today) {
			active = append(active, record)
		}
	}
	return active, nil
}

func (s *fakeSource) ResolveEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	for _, employee := range s.employees {
		if NormalizeEmail(employee.Email) == NormalizeEmail(email) {
			return employee, nil
		}
	}
	return nil, nil
}

func (s *fakeSource) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	return s.employees[id], nil
}

type fakePlatform struct {
	mu         sync.Mutex
	accounts   []models.Account
	statuses   map[string]models.Status
	readDenied bool
	setFails   map[string]bool
	sets       map[string]models.Presentation
	clears     []string
}

func newFakePlatform(accounts ...models.Account) *fakePlatform {
	return &fakePlatform{
		accounts: accounts,
		statuses: make(map[string]models.Status),
		setFails: make(map[string]bool),
		sets:     make(map[string]models.Presentation),
	}
}

func (p *fakePlatform) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return p.accounts, nil
}

func (p *fakePlatform) GetStatus(ctx context.Context, accountID string) (models.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readDenied {
		return models.Status{}, fmt.Errorf("%w: not_allowed_token_type", ErrPermissionDegraded)
	}
	return p.statuses[accountID], nil
}

func (p *fakePlatform) SetStatus(ctx context.Context, accountID string, presentation models.Presentation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setFails[accountID] {
		return errors.New("not_allowed_token_type")
	}
	p.sets[accountID] = presentation
	p.statuses[accountID] = models.Status{Text: presentation.Text, Emoji: presentation.Emoji}
	return nil
}

func (p *fakePlatform) ClearStatus(ctx context.Context, accountID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears = append(p.clears, accountID)
	p.statuses[accountID] = models.Status{}
	return nil
}

var testToday = time.Date(2026, time.November, 10, 9, 30, 0, 0, time.UTC)

func newTestEngine(source LeaveSource, platform *fakePlatform, overrides *OverrideStore) *Engine {
	return NewEngine(source, NewDirectoryResolver(platform, overrides), platform, nil, EngineConfig{
		Concurrency: 4,
		Location:    time.UTC,
		Now:         func() time.Time { return testToday },
	})
}

func vacation(id int64, email string, start, end time.Time) models.LeaveRecord {
	return models.LeaveRecord{
		ID:            id,
		EmployeeEmail: email,
		LeaveTypeName: "Vacation",
		StartDate:     start,
		EndDate:       end,
		State:         models.LeaveStateApproved,
	}
}

func TestEngine_SetsStatusWithLocalMidnightExpiration(t *testing.T) {
	platform := newFakePlatform(models.Account{ID: "U1", Email: "jane@co.com"})
	source := &fakeSource{fetches: [][]models.LeaveRecord{{
		vacation(1, "Jane@Co.com", date(2026, time.November, 9), date(2026, time.November, 10)),
	}}}

	result, err := newTestEngine(source, platform, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != (models.PassResult{Updated: 1}) {
		t.Fatalf("result = %+v", result)
	}

	got := platform.sets["U1"]
	if got.Text != "Vacation till Nov 11" || got.Emoji != ":palm_tree:" {
		t.Errorf("unexpected presentation %+v", got)
	}
	if got.Expiration != date(2026, time.November, 11).Unix() {
		t.Errorf("Expiration = %d", got.Expiration)
	}
}

func TestEngine_IdempotentPasses(t *testing.T) {
	platform := newFakePlatform(
		models.Account{ID: "U1", Email: "jane@co.com"},
		models.Account{ID: "U2", Email: "bob@co.com"},
		models.Account{ID: "U3", Email: "eve@co.com"},
	)
	platform.statuses["U3"] = models.Status{Text: "In a meeting"}
	source := &fakeSource{fetches: [][]models.LeaveRecord{{
		vacation(1, "jane@co.com", date(2026, time.November, 9), date(2026, time.November, 12)),
		vacation(2, "bob@co.com", date(2026, time.November, 10), date(2026, time.November, 10)),
	}}}
	engine := newTestEngine(source, platform, nil)

	for i := 0; i < 2; i++ {
		result, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if result != (models.PassResult{Updated: 2}) {
			t.Fatalf("pass %d result = %+v", i, result)
		}
	}
	if len(platform.clears) != 0 {
		t.Fatalf("unexpected clears %v", platform.clears)
	}
}

func TestEngine_SweepClearsOnlyConfirmedLeaveStatuses(t *testing.T) {
	platform := newFakePlatform(
		models.Account{ID: "U1", Email: "ended@co.com"},
		models.Account{ID: "U2", Email: "busy@co.com"},
		models.Account{ID: "U3", Email: "empty@co.com"},
	)
	platform.statuses["U1"] = models.Status{Text: "Vacation till Nov 11", Emoji: ":palm_tree:"}
	platform.statuses["U2"] = models.Status{Text: "In a meeting"}
	source := &fakeSource{}

	result, err := newTestEngine(source, platform, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != (models.PassResult{Cleared: 1}) {
		t.Fatalf("result = %+v", result)
	}
	if len(platform.clears) != 1 || platform.clears[0] != "U1" {
		t.Fatalf("clears = %v", platform.clears)
	}
	if platform.statuses["U2"].Text != "In a meeting" {
		t.Error("custom status was touched")
	}
}

func TestEngine_SweepSkipsWhenFreshQueryShowsLeave(t *testing.T) {
	platform := newFakePlatform(
		models.Account{ID: "U1", Email: "jane@co.com"},
		models.Account{ID: "U2", Email: "late@co.com"},
	)
	platform.statuses["U2"] = models.Status{Text: "Sick till Nov 12", Emoji: ":face_with_thermometer:"}

	// the record for late@ appears only in the second fetch
	first := []models.LeaveRecord{vacation(1, "jane@co.com", date(2026, time.November, 10), date(2026, time.November, 10))}
	second := append(first, vacation(2, "late@co.com", date(2026, time.November, 10), date(2026, time.November, 11)))
	source := &fakeSource{fetches: [][]models.LeaveRecord{first, second}}

	result, err := newTestEngine(source, platform, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != (models.PassResult{Updated: 1}) {
		t.Fatalf("result = %+v", result)
	}
	if len(platform.clears) != 0 {
		t.Fatalf("clears = %v", platform.clears)
	}
}

func TestEngine_CoveredAccountsAreNeverSwept(t *testing.T) {
	platform := newFakePlatform(models.Account{ID: "U1", Email: "jane@co.com"})
	platform.statuses["U1"] = models.Status{Text: "Holiday till Nov 20", Emoji: ":palm_tree:"}
	platform.setFails["U1"] = true
	source := &fakeSource{fetches: [][]models.LeaveRecord{{
		vacation(1, "jane@co.com", date(2026, time.November, 10), date(2026, time.November, 19)),
	}}}

	result, err := newTestEngine(source, platform, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != (models.PassResult{Errors: 1}) {
		t.Fatalf("result = %+v", result)
	}
	if len(platform.clears) != 0 {
		t.Fatalf("covered account was cleared: %v", platform.clears)
	}
	if source.calls != 1 {
		t.Fatalf("expected no confirmation query, got %d fetches", source.calls)
	}
}

func TestEngine_EmailFromEmployeeLookupAndOverrides(t *testing.T) {
	platform := newFakePlatform(models.Account{ID: "U1", Email: "someone@co.com"})
	overrides := NewOverrideStore()
	overrides.Remember("contractor@ext.io", "U9")

	source := &fakeSource{
		fetches: [][]models.LeaveRecord{{
			{ID: 5, EmployeeID: 50, LeaveTypeName: "Sick Leave", StartDate: date(2026, time.November, 10), EndDate: date(2026, time.November, 10), State: "approved"},
			{ID: 6, EmployeeID: 60, LeaveTypeName: "Vacation", StartDate: date(2026, time.November, 10), EndDate: date(2026, time.November, 10), State: "approved"},
			{ID: 7, LeaveTypeName: "Vacation", StartDate: date(2026, time.November, 10), EndDate: date(2026, time.November, 10), State: "approved"},
		}},
		employees: map[int64]*models.Employee{
			50: {ID: 50, ContactEmail: "Contractor@ext.io"},
			60: {ID: 60, Email: "nobody@elsewhere.com"},
		},
	}

	result, err := newTestEngine(source, platform, overrides).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != (models.PassResult{Updated: 1}) {
		t.Fatalf("result = %+v", result)
	}
	if platform.sets["U9"].Emoji != ":face_with_thermometer:" {
		t.Fatalf("expected sick status on override account, got %+v", platform.sets)
	}
}

func TestEngine_OneDecisionPerAccount(t *testing.T) {
	platform := newFakePlatform(models.Account{ID: "U1", Email: "jane@co.com"})
	source := &fakeSource{fetches: [][]models.LeaveRecord{{
		vacation(1, "jane@co.com", date(2026, time.November, 10), date(2026, time.November, 10)),
		vacation(2, "jane@co.com", date(2026, time.November, 9), date(2026, time.November, 14)),
	}}}

	result, err := newTestEngine(source, platform, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}
	if platform.sets["U1"].Text != "Vacation till Nov 15" {
		t.Fatalf("expected the longer leave to win, got %q", platform.sets["U1"].Text)
	}
}

func TestEngine_PermissionDegradedSweepIsSilent(t *testing.T) {
	platform := newFakePlatform(models.Account{ID: "U1", Email: "jane@co.com"})
	platform.readDenied = true

	result, err := newTestEngine(&fakeSource{}, platform, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != (models.PassResult{}) {
		t.Fatalf("result = %+v", result)
	}
}

func TestEngine_SourceUnavailableAbortsPass(t *testing.T) {
	platform := newFakePlatform(models.Account{ID: "U1", Email: "jane@co.com"})
	platform.statuses["U1"] = models.Status{Text: "Vacation till Nov 11"}
	source := &fakeSource{fetchErr: errors.New("connection refused")}

	result, err := newTestEngine(source, platform, nil).Run(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if result != (models.PassResult{Errors: 1}) {
		t.Fatalf("result = %+v", result)
	}
	if len(platform.clears) != 0 || len(platform.sets) != 0 {
		t.Fatal("no mutations expected after a gather failure")
	}
}
