package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"leave-status-bot/internal/config"
	"leave-status-bot/internal/handler"
	"leave-status-bot/internal/models"
	"leave-status-bot/internal/repository"
	"leave-status-bot/internal/service"
	"leave-status-bot/pkg/peopleforce"
	"leave-status-bot/pkg/slackapi"
	"leave-status-bot/pkg/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	once := pflag.Bool("once", false, "run a single status sync and exit")
	envFile := pflag.String("env-file", "", "dotenv file to load (default .env)")
	pflag.Parse()

	logrus.Info("Initializing config...")
	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg := config.GetBotConfig(envFiles...)
	cfg.ConfigureLogging()
	logrus.Info("Config initialized...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logrus.Fatal("Failed to connect to database:", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logrus.Fatal("Failed to get database instance:", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logrus.Infof("Error closing database: %v", err)
		}
	}()

	syncRunRepo, err := repository.NewGormSyncRunRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create sync run repository")
	}

	peopleForce, err := peopleforce.NewClient(peopleforce.Config{
		BaseURL: cfg.PeopleForceURL,
		APIKey:  cfg.PeopleForceAPIKey,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create PeopleForce client")
	}
	slackClient := slackapi.NewClient(cfg.SlackBotToken, cfg.SlackUserToken)
	if !slackClient.HasElevatedToken() {
		logrus.Warn("SLACK_USER_TOKEN not set, status writes use the bot token and may be refused")
	}

	overrides, err := service.LoadOverridesFile(cfg.UserOverridesFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load user overrides")
	}
	if overrides.Len() > 0 {
		logrus.Infof("Loaded %d user overrides", overrides.Len())
	}

	source := service.NewPeopleForceSource(peopleForce)
	platform := service.NewSlackPlatform(slackClient)
	engine := service.NewEngine(
		source,
		service.NewDirectoryResolver(platform, overrides),
		platform,
		service.NewPresenter(cfg.Location),
		service.EngineConfig{
			Concurrency: cfg.SyncConcurrency,
			Location:    cfg.Location,
		},
	)

	var operatorBot *telegram.Client
	var notifier service.Notifier
	if cfg.TelegramEnabled() {
		operatorBot, err = telegram.NewClient(cfg.TelegramToken, cfg.BaseAdminChatID, cfg.TelegramDebug)
		if err != nil {
			logrus.Fatal("Failed to create Telegram client:", err)
		}
		logrus.Infof("Authorized on account %s", operatorBot.Bot.Self.UserName)
		notifier = operatorBot
	}

	runner := service.NewSyncRunner(engine, syncRunRepo, notifier)

	if *once {
		code := runOnce(ctx, runner, cfg.PassTimeout)
		_ = sqlDB.Close()
		stop()
		os.Exit(code)
	}

	scheduler, err := service.NewScheduler(cfg.SyncCron, cfg.Location, runner, cfg.PassTimeout)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create scheduler")
	}

	requests := service.NewLeaveRequestService(source, slackClient, overrides, cfg.LeaveTypesTimeout)
	slackHandler := handler.NewSlackHandler(ctx, slackClient, requests, runner, cfg.SlackSigningSecret, cfg.PassTimeout, cfg.Location)
	server := handler.NewServer(ctx, runner, slackHandler, cfg.PassTimeout)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if operatorBot != nil {
		operator := handler.NewOperator(ctx, operatorBot, runner, cfg.BaseAdminChatID, cfg.PassTimeout, cfg.Location)
		updates := operatorBot.Bot.GetUpdatesChan(operatorBot.UpdateConfig)
		go operator.HandleUpdates(updates)
		defer operatorBot.Bot.StopReceivingUpdates()
	}

	scheduler.Start(ctx)

	go func() {
		logrus.Infof("Leave status bot listening on port %d", cfg.Port)
		logrus.Infof("Webhook endpoint: http://localhost:%d/webhook/peopleforce", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()

	logrus.Info("Bot started. Press Ctrl+C to stop.")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown")
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logrus.Warn("Scheduled sync still running at shutdown")
	}

	logrus.Info("Bot stopped gracefully")
}

// runOnce runs one pass from the command line and returns the exit code.
func runOnce(ctx context.Context, runner *service.SyncRunner, timeout time.Duration) int {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := runner.Run(ctx, models.TriggerCLI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %s\n", err.Error())
		return 1
	}
	fmt.Printf("Sync complete: %d updated, %d cleared, %d errors\n", result.Updated, result.Cleared, result.Errors)
	return 0
}
