// internal/service/reconcile.go
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"leave-status-bot/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

type EngineConfig struct {
	// Concurrency bounds in-flight platform calls per phase.
	Concurrency int
	// Location defines "today" and local midnight for expirations.
	Location   *time.Location
	Now        func() time.Time
	Authorship AuthorshipCheck
}

// Engine reconciles platform statuses with active approved leave. It keeps
// no state between passes.
type Engine struct {
	source      LeaveSource
	directory   *DirectoryResolver
	platform    StatusPlatform
	presenter   *Presenter
	authorship  AuthorshipCheck
	concurrency int
	location    *time.Location
	now         func() time.Time
}

func NewEngine(source LeaveSource, directory *DirectoryResolver, platform StatusPlatform, presenter *Presenter, cfg EngineConfig) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Authorship == nil {
		cfg.Authorship = KeywordHeuristic{}
	}
	if presenter == nil {
		presenter = NewPresenter(cfg.Location)
	}

	return &Engine{
		source:      source,
		directory:   directory,
		platform:    platform,
		presenter:   presenter,
		authorship:  cfg.Authorship,
		concurrency: cfg.Concurrency,
		location:    cfg.Location,
		now:         cfg.Now,
	}
}

// Run executes one pass: gather, match and set, sweep and clear, report.
// A gather failure aborts the pass with an error wrapping ErrSourceUnavailable.
func (e *Engine) Run(ctx context.Context) (models.PassResult, error) {
	today := models.DateOf(e.now().In(e.location))
	p := &pass{
		engine:    e,
		today:     today,
		log:       LoggerFrom(ctx).WithField("today", today.Format(models.DateLayout)),
		covered:   make(map[string]struct{}),
		employees: make(map[int64]string),
	}

	activeLeave, err := e.source.FetchActiveApprovedLeave(ctx, today)
	if err != nil {
		return models.PassResult{Errors: 1}, asSourceUnavailable("fetch active leave", err)
	}
	directory, err := e.directory.Resolve(ctx)
	if err != nil {
		return models.PassResult{Errors: 1}, asSourceUnavailable("resolve directory", err)
	}
	p.directory = directory

	p.log.WithFields(logrus.Fields{
		"active_leave": len(activeLeave),
		"accounts":     len(directory.ByAccount),
	}).Info("Gathered leave and directory")

	decisions := p.match(ctx, activeLeave)
	p.apply(ctx, decisions)
	p.sweep(ctx)

	return p.result, nil
}

type plannedSet struct {
	record   models.LeaveRecord
	decision models.StatusDecision
}

// pass is the mutable state of a single Run.
type pass struct {
	engine    *Engine
	today     time.Time
	directory *Directory
	log       *logrus.Entry

	mu        sync.Mutex
	result    models.PassResult
	covered   map[string]struct{}
	employees map[int64]string

	degradedOnce sync.Once

	confirmOnce sync.Once
	confirmed   map[string]struct{}
	confirmErr  error
}

func (p *pass) group() *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(p.engine.concurrency)
	return g
}

// match maps each active record to an account and plans one SET per account.
// When an account has several active records the one ending last wins.
func (p *pass) match(ctx context.Context, records []models.LeaveRecord) map[string]plannedSet {
	planned := make(map[string]plannedSet)
	g := p.group()

	for _, record := range records {
		g.Go(func() error {
			log := p.log.WithFields(logrus.Fields{
				"leave_request_id": record.ID,
				"employee_id":      record.EmployeeID,
			})

			email, err := p.recordEmail(ctx, record)
			if err != nil {
				log.WithError(err).Error("Failed to look up employee email")
				p.count(func(r *models.PassResult) { r.Errors++ })
				return nil
			}
			if email == "" {
				log.Warn("No email for leave record, skipping")
				return nil
			}

			accountID, ok := p.directory.ByEmail[email]
			if !ok {
				log.WithField("email", email).Warn("No Slack account for employee email, skipping")
				return nil
			}

			candidate := plannedSet{
				record: record,
				decision: models.StatusDecision{
					AccountID:    accountID,
					Action:       models.ActionSet,
					Presentation: p.engine.presenter.Present(record),
				},
			}

			p.mu.Lock()
			defer p.mu.Unlock()
			current, exists := planned[accountID]
			if !exists || supersedes(candidate.record, current.record) {
				planned[accountID] = candidate
			}
			p.covered[accountID] = struct{}{}
			return nil
		})
	}
	g.Wait()

	return planned
}

func supersedes(candidate, current models.LeaveRecord) bool {
	if !candidate.EndDate.Equal(current.EndDate) {
		return candidate.EndDate.After(current.EndDate)
	}
	return candidate.ID > current.ID
}

func (p *pass) apply(ctx context.Context, planned map[string]plannedSet) {
	g := p.group()

	for accountID, plan := range planned {
		g.Go(func() error {
			decision := plan.decision
			log := p.log.WithFields(logrus.Fields{
				"account_id": accountID,
				"action":     decision.Action,
				"status":     decision.Presentation.Text,
			})

			if err := p.engine.platform.SetStatus(ctx, accountID, decision.Presentation); err != nil {
				log.WithError(&AccountMutationError{AccountID: accountID, Action: decision.Action, Err: err}).Error("Failed to set status")
				p.count(func(r *models.PassResult) { r.Errors++ })
				return nil
			}

			log.Info("Status set")
			p.count(func(r *models.PassResult) { r.Updated++ })
			return nil
		})
	}
	g.Wait()
}

// sweep clears leave-looking statuses on accounts with no active leave.
func (p *pass) sweep(ctx context.Context) {
	g := p.group()

	for accountID, email := range p.directory.ByAccount {
		if _, ok := p.covered[accountID]; ok {
			continue
		}

		g.Go(func() error {
			log := p.log.WithField("account_id", accountID)

			status, err := p.engine.platform.GetStatus(ctx, accountID)
			if errors.Is(err, ErrPermissionDegraded) {
				p.degradedOnce.Do(func() {
					log.WithError(err).Warn("Status reads not permitted, sweep is degraded")
				})
				return nil
			}
			if err != nil {
				log.WithError(err).Warn("Failed to read current status")
				p.count(func(r *models.PassResult) { r.Errors++ })
				return nil
			}

			if status.IsEmpty() || !p.engine.authorship.MaybeOurs(status) {
				return nil
			}

			confirmed, err := p.confirmation(ctx)
			if err != nil {
				log.WithError(err).Error("Could not confirm absence of leave, not clearing")
				p.count(func(r *models.PassResult) { r.Errors++ })
				return nil
			}
			if _, onLeave := confirmed[email]; onLeave {
				log.Info("Fresh query shows active leave, leaving status alone")
				return nil
			}

			if err := p.engine.platform.ClearStatus(ctx, accountID); err != nil {
				log.WithError(&AccountMutationError{AccountID: accountID, Action: models.ActionClear, Err: err}).Error("Failed to clear status")
				p.count(func(r *models.PassResult) { r.Errors++ })
				return nil
			}

			log.WithFields(logrus.Fields{
				"email":  email,
				"status": status.Text,
			}).Info("Status cleared, leave ended or was withdrawn")
			p.count(func(r *models.PassResult) { r.Cleared++ })
			return nil
		})
	}
	g.Wait()
}

// confirmation re-queries active leave once per pass and returns the set of
// normalized emails currently on leave.
func (p *pass) confirmation(ctx context.Context) (map[string]struct{}, error) {
	p.confirmOnce.Do(func() {
		records, err := p.engine.source.FetchActiveApprovedLeave(ctx, p.today)
		if err != nil {
			p.confirmErr = err
			return
		}

		confirmed := make(map[string]struct{}, len(records))
		for _, record := range records {
			email, err := p.recordEmail(ctx, record)
			if err != nil {
				p.confirmErr = err
				return
			}
			if email != "" {
				confirmed[email] = struct{}{}
			}
		}
		p.confirmed = confirmed
	})
	return p.confirmed, p.confirmErr
}

// recordEmail prefers the email on the record and falls back to looking the
// employee up by id. Lookups are cached for the pass.
func (p *pass) recordEmail(ctx context.Context, record models.LeaveRecord) (string, error) {
	if record.EmployeeEmail != "" {
		return NormalizeEmail(record.EmployeeEmail), nil
	}
	if record.EmployeeID == 0 {
		return "", nil
	}

	p.mu.Lock()
	email, cached := p.employees[record.EmployeeID]
	p.mu.Unlock()
	if cached {
		return email, nil
	}

	employee, err := p.engine.source.GetEmployee(ctx, record.EmployeeID)
	if err != nil {
		return "", err
	}
	if employee != nil {
		email = NormalizeEmail(employee.PrimaryEmail())
	}

	p.mu.Lock()
	p.employees[record.EmployeeID] = email
	p.mu.Unlock()
	return email, nil
}

func (p *pass) count(update func(*models.PassResult)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	update(&p.result)
}

func asSourceUnavailable(what string, err error) error {
	if errors.Is(err, ErrSourceUnavailable) {
		return err
	}
	return sourceUnavailable(what, err)
}
