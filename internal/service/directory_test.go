package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"leave-status-bot/internal/models"
)

type stubLister struct {
	accounts []models.Account
	err      error
}

func (s stubLister) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.accounts, s.err
}

func TestDirectoryResolver_CaseInsensitiveFirstMatchWins(t *testing.T) {
	resolver := NewDirectoryResolver(stubLister{accounts: []models.Account{
		{ID: "U1", Email: "Jane@Co.com"},
		{ID: "U2", Email: "jane@co.com"},
		{ID: "U3", Email: ""},
		{ID: "U4", Email: "bob@co.com"},
	}}, nil)

	directory, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got := directory.ByEmail["jane@co.com"]; got != "U1" {
		t.Errorf("jane -> %q, want U1", got)
	}
	if _, ok := directory.ByAccount["U2"]; ok {
		t.Error("duplicate account U2 should not be in the directory")
	}
	if _, ok := directory.ByAccount["U3"]; ok {
		t.Error("account without email should be skipped")
	}
	if got := directory.ByAccount["U4"]; got != "bob@co.com" {
		t.Errorf("U4 -> %q", got)
	}
}

func TestDirectoryResolver_OverridesFillGapsOnly(t *testing.T) {
	overrides := NewOverrideStore()
	overrides.Remember("JANE@co.com", "U-override")
	overrides.Remember("contractor@ext.io", "U9")

	resolver := NewDirectoryResolver(stubLister{accounts: []models.Account{
		{ID: "U1", Email: "jane@co.com"},
	}}, overrides)

	directory, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := directory.ByEmail["jane@co.com"]; got != "U1" {
		t.Errorf("roster entry overwritten: %q", got)
	}
	if got := directory.ByEmail["contractor@ext.io"]; got != "U9" {
		t.Errorf("override gap not filled: %q", got)
	}
	if got := directory.ByAccount["U9"]; got != "contractor@ext.io" {
		t.Errorf("override account not mapped back: %q", got)
	}
}

func TestDirectoryResolver_ListFailureIsSourceUnavailable(t *testing.T) {
	resolver := NewDirectoryResolver(stubLister{err: errors.New("slack down")}, nil)
	_, err := resolver.Resolve(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestLoadOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	content := "Jane@Co.com: U1\nbob@co.com: \" U2 \"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, err := LoadOverridesFile(path)
	if err != nil {
		t.Fatalf("LoadOverridesFile: %v", err)
	}
	snapshot := store.Snapshot()
	if snapshot["jane@co.com"] != "U1" || snapshot["bob@co.com"] != "U2" {
		t.Fatalf("unexpected overrides %v", snapshot)
	}

	empty, err := LoadOverridesFile("")
	if err != nil || empty.Len() != 0 {
		t.Fatalf("expected empty store, got %v %v", empty, err)
	}
}
