package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type BotConfig struct {
	PeopleForceURL    string
	PeopleForceAPIKey string

	SlackBotToken      string
	SlackUserToken     string
	SlackSigningSecret string

	Port              int
	SyncCron          string
	Location          *time.Location
	SyncConcurrency   int
	LeaveTypesTimeout time.Duration
	PassTimeout       time.Duration
	UserOverridesFile string

	DatabaseURL string

	TelegramToken   string
	BaseAdminChatID int64
	TelegramDebug   bool

	LogLevel  string
	LogFormat string
}

var instance *BotConfig
var once sync.Once

// GetBotConfig loads the configuration once per process and exits on error.
func GetBotConfig(envFiles ...string) *BotConfig {
	once.Do(func() {
		if err := godotenv.Load(envFiles...); err != nil {
			logrus.Warnf("no env file loaded, using process environment: %s", err.Error())
		}

		cfg, err := Load()
		if err != nil {
			logrus.Fatalf("invalid configuration: %s", err.Error())
		}
		instance = cfg
	})

	return instance
}

// Load builds a BotConfig from the process environment.
func Load() (*BotConfig, error) {
	cfg := &BotConfig{}

	cfg.PeopleForceURL = getEnv("PEOPLEFORCE_API_URL", "https://app.peopleforce.io/api/public/v3")
	cfg.PeopleForceAPIKey = getEnv("PEOPLEFORCE_API_KEY", "")
	if cfg.PeopleForceAPIKey == "" {
		return nil, fmt.Errorf("could not get PEOPLEFORCE_API_KEY")
	}

	cfg.SlackBotToken = getEnv("SLACK_BOT_TOKEN", "")
	if cfg.SlackBotToken == "" {
		return nil, fmt.Errorf("could not get SLACK_BOT_TOKEN")
	}
	cfg.SlackUserToken = getEnv("SLACK_USER_TOKEN", cfg.SlackBotToken)
	cfg.SlackSigningSecret = getEnv("SLACK_SIGNING_SECRET", "")

	cfg.Port = int(getEnvAsInt("PORT", 3000))
	cfg.SyncCron = getEnv("SYNC_CRON", "*/15 * * * *")
	cfg.SyncConcurrency = int(getEnvAsInt("SYNC_CONCURRENCY", 8))
	cfg.LeaveTypesTimeout = getEnvAsDuration("LEAVE_TYPES_TIMEOUT", 3*time.Second)
	cfg.PassTimeout = getEnvAsDuration("PASS_TIMEOUT", 10*time.Minute)
	cfg.UserOverridesFile = getEnv("USER_OVERRIDES_FILE", "")

	location, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = location

	cfg.DatabaseURL = getEnv("DATABASE_URL", "leave-status-bot.db")

	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.BaseAdminChatID = getEnvAsInt("BASE_ADMIN_CHAT_ID", 0)
	if cfg.TelegramToken != "" && cfg.BaseAdminChatID == 0 {
		return nil, fmt.Errorf("could not get BASE_ADMIN_CHAT_ID for the operator bot")
	}
	cfg.TelegramDebug = getEnvAsBool("TELEGRAM_DEBUG", false)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")

	return cfg, nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c *BotConfig) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func (c *BotConfig) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if val, err := time.ParseDuration(valStr); err == nil && val > 0 {
		return val
	}

	return defaultVal
}
