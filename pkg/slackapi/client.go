package slackapi

import (
	"context"
	"errors"
	"strings"

	"github.com/slack-go/slack"
)

// Client pairs the bot token client with the client used for status writes.
// Writing another member's status needs a user token with users.profile:write;
// without one, User is the bot client and writes fail with a permission error.
type Client struct {
	Bot  *slack.Client
	User *slack.Client
}

func NewClient(botToken, userToken string, options ...slack.Option) *Client {
	bot := slack.New(botToken, options...)
	user := bot
	if userToken != "" && userToken != botToken {
		user = slack.New(userToken, options...)
	}
	return &Client{Bot: bot, User: user}
}

// HasElevatedToken reports whether status writes use a separate user token.
func (c *Client) HasElevatedToken() bool {
	return c.User != c.Bot
}

// ListUsers returns the full workspace roster in one paginated sweep.
func (c *Client) ListUsers(ctx context.Context) ([]slack.User, error) {
	return c.Bot.GetUsersContext(ctx)
}

func (c *Client) GetStatus(ctx context.Context, userID string) (text, emoji string, err error) {
	profile, err := c.Bot.GetUserProfileContext(ctx, &slack.GetUserProfileParameters{UserID: userID})
	if err != nil {
		return "", "", err
	}
	return profile.StatusText, profile.StatusEmoji, nil
}

func (c *Client) SetStatus(ctx context.Context, userID, text, emoji string, expiration int64) error {
	return c.User.SetUserCustomStatusContextWithUser(ctx, userID, text, emoji, expiration)
}

func (c *Client) ClearStatus(ctx context.Context, userID string) error {
	return c.User.SetUserCustomStatusContextWithUser(ctx, userID, "", "", 0)
}

// UserEmail returns the profile email of a single member.
func (c *Client) UserEmail(ctx context.Context, userID string) (string, error) {
	user, err := c.Bot.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Profile.Email, nil
}

// PostDirectMessage sends text to a member; posting to a user ID opens the DM.
func (c *Client) PostDirectMessage(ctx context.Context, userID, text string) error {
	_, _, err := c.Bot.PostMessageContext(ctx, userID, slack.MsgOptionText(text, false))
	return err
}

func (c *Client) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	_, err := c.Bot.OpenViewContext(ctx, triggerID, view)
	return err
}

func (c *Client) UpdateView(ctx context.Context, viewID, hash string, view slack.ModalViewRequest) error {
	_, err := c.Bot.UpdateViewContext(ctx, view, "", hash, viewID)
	return err
}

// permissionErrors are Slack error codes meaning the token lacks a capability.
var permissionErrors = []string{
	"not_allowed_token_type",
	"missing_scope",
	"no_permission",
	"not_authorized",
	"cannot_update_admin_user",
}

// IsPermissionError reports whether err is Slack refusing the call for lack of capability.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	code := err.Error()
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		code = slackErr.Err
	}
	for _, candidate := range permissionErrors {
		if strings.Contains(code, candidate) {
			return true
		}
	}
	return false
}
