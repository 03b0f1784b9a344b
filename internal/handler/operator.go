// internal/handler/operator.go
package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"leave-status-bot/internal/models"
	"leave-status-bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender delivers a text message to a Telegram chat; *telegram.Client implements it.
type Sender interface {
	SendText(chatID int64, text string) error
}

// SyncOperations is what the operator bot can do with passes; *service.SyncRunner implements it.
type SyncOperations interface {
	Run(ctx context.Context, trigger string) (models.PassResult, error)
	History(limit int) ([]models.SyncRun, error)
	LastFailure() (*models.SyncRun, error)
	Lookup(runID string) (*models.SyncRun, error)
}

const defaultHistoryLimit = 10

// Operator answers commands from the admin chat of the operator bot.
type Operator struct {
	sender      Sender
	sync        SyncOperations
	adminChatID int64
	baseCtx     context.Context
	passTimeout time.Duration
	location    *time.Location
}

func NewOperator(baseCtx context.Context, sender Sender, sync SyncOperations, adminChatID int64, passTimeout time.Duration, location *time.Location) *Operator {
	if location == nil {
		location = time.Local
	}
	return &Operator{
		sender:      sender,
		sync:        sync,
		adminChatID: adminChatID,
		baseCtx:     baseCtx,
		passTimeout: passTimeout,
		location:    location,
	}
}

func (o *Operator) HandleUpdates(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			continue
		}
		o.handleMessage(update.Message)
	}
}

func (o *Operator) handleMessage(message *tgbotapi.Message) {
	log := logrus.WithField("component", "operator")
	defer service.RecoverAndLog(log, "Operator command")

	chatID := message.Chat.ID
	userName := ""
	if message.From != nil {
		userName = message.From.UserName
	}
	log.Infof("[%s] %s", userName, message.Text)

	if !message.IsCommand() {
		return
	}

	if chatID != o.adminChatID {
		logrus.WithField("chat_id", chatID).Warn("Unauthorized access to operator command")
		o.send(chatID, "❌ Access denied. This bot only answers its administrator.")
		return
	}

	switch message.Command() {
	case "start", "help":
		o.send(chatID, operatorHelp)
	case "sync":
		o.runSync(chatID)
	case "history":
		o.showHistory(chatID, message.CommandArguments())
	case "lastfailure":
		o.showLastFailure(chatID)
	case "run":
		o.showRun(chatID, message.CommandArguments())
	default:
		o.send(chatID, "❌ Unknown command. Use /help for the list of commands.")
	}
}

const operatorHelp = `📋 Available commands:

/sync - Run a status sync now
/history [N] - Last N sync runs (default 10)
/lastfailure - Most recent failed sync run
/run <id> - Details of one sync run
/help - Show this message

⚠️ Scheduled and webhook syncs that fail are reported here automatically.`

func (o *Operator) runSync(chatID int64) {
	o.send(chatID, "🔄 Starting manual sync...")

	ctx := o.baseCtx
	if o.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.passTimeout)
		defer cancel()
	}

	result, err := o.sync.Run(ctx, models.TriggerOperator)
	if err != nil {
		o.send(chatID, "❌ Sync failed: "+err.Error())
		return
	}
	o.send(chatID, formatPassResult(result))
}

func (o *Operator) showHistory(chatID int64, args string) {
	limit := defaultHistoryLimit
	if args = strings.TrimSpace(args); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			o.send(chatID, "❌ Usage: /history [N]")
			return
		}
		limit = n
	}

	runs, err := o.sync.History(limit)
	if err != nil {
		o.send(chatID, "❌ Failed to read sync history: "+err.Error())
		return
	}
	if len(runs) == 0 {
		o.send(chatID, "📭 No sync runs recorded yet.")
		return
	}
	o.send(chatID, formatHistory(runs, o.location))
}

func (o *Operator) showLastFailure(chatID int64) {
	run, err := o.sync.LastFailure()
	if err != nil {
		o.send(chatID, "❌ Failed to read sync history: "+err.Error())
		return
	}
	if run == nil {
		o.send(chatID, "✅ No failed sync runs recorded.")
		return
	}
	o.send(chatID, fmt.Sprintf("❌ %s (%s)\nRun: %s\n%s",
		run.StartedAt.In(o.location).Format("02.01.2006 15:04"), run.Trigger, run.RunID, run.Failure))
}

func (o *Operator) showRun(chatID int64, args string) {
	runID := strings.TrimSpace(args)
	if runID == "" {
		o.send(chatID, "❌ Usage: /run <id>")
		return
	}

	run, err := o.sync.Lookup(runID)
	if err != nil {
		o.send(chatID, "❌ Failed to read sync history: "+err.Error())
		return
	}
	if run == nil {
		o.send(chatID, "🔍 No sync run with id "+runID)
		return
	}
	o.send(chatID, formatRun(*run, o.location))
}

func formatRun(run models.SyncRun, location *time.Location) string {
	outcome := "✅ Succeeded"
	if !run.Succeeded() {
		outcome = "❌ Failed: " + run.Failure
	}
	return fmt.Sprintf("Run %s (%s)\nStarted: %s\nDuration: %s\nUpdated: %d\nCleared: %d\nErrors: %d\n%s",
		run.RunID,
		run.Trigger,
		run.StartedAt.In(location).Format("02.01.2006 15:04:05"),
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		run.Updated, run.Cleared, run.Errors,
		outcome,
	)
}

func formatHistory(runs []models.SyncRun, location *time.Location) string {
	var b strings.Builder
	b.WriteString("📜 Recent sync runs:\n")
	for _, run := range runs {
		icon := "✅"
		if !run.Succeeded() {
			icon = "❌"
		}
		fmt.Fprintf(&b, "\n%s %s %s: +%d -%d !%d",
			icon,
			run.StartedAt.In(location).Format("02.01.2006 15:04"),
			run.Trigger,
			run.Updated, run.Cleared, run.Errors,
		)
	}
	return b.String()
}

func (o *Operator) send(chatID int64, text string) {
	if err := o.sender.SendText(chatID, text); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send operator message")
	}
}
