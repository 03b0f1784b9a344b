// internal/service/directory.go
package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"leave-status-bot/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// NormalizeEmail returns the case-folded join key for an email address.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// Directory is the email/account correlation for one pass.
type Directory struct {
	ByEmail   map[string]string // normalized email -> account id
	ByAccount map[string]string // account id -> normalized email
}

// AccountLister lists every destination account with its profile email.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// OverrideStore holds email -> account associations confirmed outside the
// roster: a manually maintained file plus submissions through the request
// form. It lives for the process only.
type OverrideStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewOverrideStore() *OverrideStore {
	return &OverrideStore{entries: make(map[string]string)}
}

// LoadOverridesFile reads a YAML mapping of email to account id.
func LoadOverridesFile(path string) (*OverrideStore, error) {
	store := NewOverrideStore()
	if path == "" {
		return store, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse overrides file: %w", err)
	}
	for email, accountID := range raw {
		store.Remember(email, accountID)
	}
	return store, nil
}

// Remember records a confirmed association. Later confirmations replace earlier ones.
func (s *OverrideStore) Remember(email, accountID string) {
	key := NormalizeEmail(email)
	accountID = strings.TrimSpace(accountID)
	if key == "" || accountID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = accountID
}

func (s *OverrideStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]string, len(s.entries))
	for email, accountID := range s.entries {
		snapshot[email] = accountID
	}
	return snapshot
}

func (s *OverrideStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type DirectoryResolver struct {
	accounts  AccountLister
	overrides *OverrideStore
}

func NewDirectoryResolver(accounts AccountLister, overrides *OverrideStore) *DirectoryResolver {
	if overrides == nil {
		overrides = NewOverrideStore()
	}
	return &DirectoryResolver{accounts: accounts, overrides: overrides}
}

// Resolve lists the full roster once and merges overrides into the gaps.
// The roster wins on conflicts; the first account listed for an email wins.
func (r *DirectoryResolver) Resolve(ctx context.Context) (*Directory, error) {
	accounts, err := r.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, sourceUnavailable("list accounts", err)
	}

	directory := &Directory{
		ByEmail:   make(map[string]string, len(accounts)),
		ByAccount: make(map[string]string, len(accounts)),
	}

	for _, account := range accounts {
		email := NormalizeEmail(account.Email)
		if email == "" || account.ID == "" {
			continue
		}
		if existing, ok := directory.ByEmail[email]; ok {
			logrus.WithFields(logrus.Fields{
				"email":   email,
				"kept":    existing,
				"ignored": account.ID,
			}).Debug("Duplicate email in roster")
			continue
		}
		directory.ByEmail[email] = account.ID
		directory.ByAccount[account.ID] = email
	}

	for email, accountID := range r.overrides.Snapshot() {
		if _, ok := directory.ByEmail[email]; ok {
			continue
		}
		directory.ByEmail[email] = accountID
		if _, ok := directory.ByAccount[accountID]; !ok {
			directory.ByAccount[accountID] = email
		}
	}

	return directory, nil
}
