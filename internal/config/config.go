package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Crypto
		Readwise
		Twos
		Capacities
		Sync
		Scheduler
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Crypto struct {
		Key string // base64-encoded 32-byte AES key
	}
	Readwise struct {
		Token   string
		BaseURL string
	}
	Twos struct {
		UserID string
		Token  string
	}
	Capacities struct {
		Token          string
		SpaceID        string
		StructureID    string
		TextPropertyID string
	}
	Sync struct {
		DaysBack int // bootstrap window when no watermark exists
	}
	Scheduler struct {
		Enabled bool
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("readwise_base_url", "")
	v.SetDefault("sync_days_back", 7)
	v.SetDefault("scheduler_enabled", true)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Crypto: Crypto{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		Readwise: Readwise{
			Token:   v.GetString("READWISE_TOKEN"),
			BaseURL: v.GetString("READWISE_BASE_URL"),
		},
		Twos: Twos{
			UserID: v.GetString("TWOS_USER_ID"),
			Token:  v.GetString("TWOS_TOKEN"),
		},
		Capacities: Capacities{
			Token:          v.GetString("CAPACITIES_TOKEN"),
			SpaceID:        v.GetString("CAPACITIES_SPACE_ID"),
			StructureID:    v.GetString("CAPACITIES_STRUCTURE_ID"),
			TextPropertyID: v.GetString("CAPACITIES_TEXT_PROPERTY_ID"),
		},
		Sync: Sync{
			DaysBack: v.GetInt("SYNC_DAYS_BACK"),
		},
		Scheduler: Scheduler{
			Enabled: v.GetBool("SCHEDULER_ENABLED"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
