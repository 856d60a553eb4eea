package providers

import (
	"cftracker/internal/structures"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 8080)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", "./logs")

	v.SetDefault("codeforces.baseUrl", "https://codeforces.com/api")
	v.SetDefault("codeforces.userAgent", "Student-Progress-Management-System/1.0")
	v.SetDefault("codeforces.minInterval", 2*time.Second)
	v.SetDefault("codeforces.maxRetries", 3)
	v.SetDefault("codeforces.retryDelay", 5*time.Second)
	v.SetDefault("codeforces.timeout", 30*time.Second)
	v.SetDefault("codeforces.maxSubmissions", 50000)
	v.SetDefault("codeforces.retryNotFound", true)

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", 24*time.Hour)
	v.SetDefault("sync.studentDelay", 2*time.Second)
	v.SetDefault("sync.activeDays", 7)

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.inactiveDays", 7)

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.baseUrl", "https://api.sendgrid.com")
	v.SetDefault("mail.fromName", "Student Progress System")
	v.SetDefault("mail.timeout", 30*time.Second)
	v.SetDefault("mail.maxRetries", 3)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.maxSyncLogs", 50)
	v.SetDefault("storage.autoMigrate", true)

	v.SetDefault("persistence.filePath", "./data/cftracker.dat")
	v.SetDefault("persistence.saveInterval", time.Minute)
	v.SetDefault("persistence.archiveDir", "./data/archive")
	v.SetDefault("persistence.archiveRetention", 90*24*time.Hour)
	v.SetDefault("persistence.compressionLevel", "better")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.size", 16)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.prefix", "cftracker:")
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	if flags.EnvPath != "" {
		if err := godotenv.Load(flags.EnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("unable to load env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.BindEnv("logger.level", "CFT_LOG_LEVEL")
	v.BindEnv("webServer.port", "CFT_PORT")
	v.BindEnv("storage.driver", "CFT_STORAGE_DRIVER")
	v.BindEnv("storage.dsn", "CFT_STORAGE_DSN")
	v.BindEnv("mail.driver", "CFT_MAIL_DRIVER")
	v.BindEnv("mail.apiKey", "CFT_MAIL_API_KEY")
	v.BindEnv("mail.fromEmail", "CFT_MAIL_FROM")
	v.BindEnv("cache.enabled", "CFT_CACHE_ENABLED")
	v.BindEnv("cache.redis.addr", "CFT_REDIS_ADDR")
	v.BindEnv("sync.interval", "CFT_SYNC_INTERVAL")
	v.BindEnv("security.cronSecret", "CFT_CRON_SECRET")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "CodeforcesTracker"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
