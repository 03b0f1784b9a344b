// internal/service/platform.go
package service

import (
	"context"
	"fmt"

	"leave-status-bot/internal/models"
	"leave-status-bot/pkg/slackapi"
)

// StatusPlatform is the messaging platform as seen by the engine.
type StatusPlatform interface {
	AccountLister
	GetStatus(ctx context.Context, accountID string) (models.Status, error)
	SetStatus(ctx context.Context, accountID string, presentation models.Presentation) error
	ClearStatus(ctx context.Context, accountID string) error
}

// SlackPlatform implements StatusPlatform on top of the Slack client pair.
type SlackPlatform struct {
	client *slackapi.Client
}

func NewSlackPlatform(client *slackapi.Client) *SlackPlatform {
	return &SlackPlatform{client: client}
}

// ListAccounts returns active human members; bots, deleted users and
// members without a profile email are dropped.
func (p *SlackPlatform) ListAccounts(ctx context.Context) ([]models.Account, error) {
	users, err := p.client.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(users))
	for _, user := range users {
		if user.Deleted || user.IsBot || user.ID == "USLACKBOT" || user.Profile.Email == "" {
			continue
		}
		accounts = append(accounts, models.Account{ID: user.ID, Email: user.Profile.Email})
	}
	return accounts, nil
}

func (p *SlackPlatform) GetStatus(ctx context.Context, accountID string) (models.Status, error) {
	text, emoji, err := p.client.GetStatus(ctx, accountID)
	if err != nil {
		if slackapi.IsPermissionError(err) {
			return models.Status{}, fmt.Errorf("%w: %v", ErrPermissionDegraded, err)
		}
		return models.Status{}, err
	}
	return models.Status{Text: text, Emoji: emoji}, nil
}

func (p *SlackPlatform) SetStatus(ctx context.Context, accountID string, presentation models.Presentation) error {
	return p.client.SetStatus(ctx, accountID, presentation.Text, presentation.Emoji, presentation.Expiration)
}

func (p *SlackPlatform) ClearStatus(ctx context.Context, accountID string) error {
	return p.client.ClearStatus(ctx, accountID)
}
