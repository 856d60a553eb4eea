package structures

import "time"

type Server struct {
	Host string `yaml:"host" mapstructure:"host" validate:"required"`
	Port int    `yaml:"port" mapstructure:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath         string        `yaml:"filePath" mapstructure:"filePath" validate:"required"`
	SaveInterval     time.Duration `yaml:"saveInterval" mapstructure:"saveInterval" validate:"required|min:1"`
	ArchiveDir       string        `yaml:"archiveDir" mapstructure:"archiveDir"`
	ArchiveRetention time.Duration `yaml:"archiveRetention" mapstructure:"archiveRetention"`
	CompressionLevel string        `yaml:"compressionLevel" mapstructure:"compressionLevel" validate:"in:fastest,default,better,best"`
}

type LoggerConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" mapstructure:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" mapstructure:"dir" validate:"required"`
}

// CodeforcesConfig tunes the outbound client. Durations are shared by every
// caller of the client because the rate limit is a single upstream budget.
type CodeforcesConfig struct {
	BaseURL        string        `yaml:"baseUrl" mapstructure:"baseUrl" validate:"required|fullUrl"`
	UserAgent      string        `yaml:"userAgent" mapstructure:"userAgent"`
	MinInterval    time.Duration `yaml:"minInterval" mapstructure:"minInterval"`
	MaxRetries     int           `yaml:"maxRetries" mapstructure:"maxRetries" validate:"min:0"`
	RetryDelay     time.Duration `yaml:"retryDelay" mapstructure:"retryDelay"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"required|min:1"`
	MaxSubmissions int           `yaml:"maxSubmissions" mapstructure:"maxSubmissions" validate:"required|min:1"`
	RetryNotFound  bool          `yaml:"retryNotFound" mapstructure:"retryNotFound"`
}

type SyncConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval     time.Duration `yaml:"interval" mapstructure:"interval" validate:"required|min:1"`
	At           string        `yaml:"at" mapstructure:"at"`
	StudentDelay time.Duration `yaml:"studentDelay" mapstructure:"studentDelay"`
	ActiveDays   int           `yaml:"activeDays" mapstructure:"activeDays" validate:"required|min:1"`
}

type ReminderConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	InactiveDays int           `yaml:"inactiveDays" mapstructure:"inactiveDays" validate:"required|min:1"`
	MinInterval  time.Duration `yaml:"minInterval" mapstructure:"minInterval"`
}

type MailConfig struct {
	Driver     string        `yaml:"driver" mapstructure:"driver" validate:"required|in:none,log,sendgrid"`
	APIKey     string        `yaml:"apiKey" mapstructure:"apiKey"`
	BaseURL    string        `yaml:"baseUrl" mapstructure:"baseUrl"`
	FromEmail  string        `yaml:"fromEmail" mapstructure:"fromEmail"`
	FromName   string        `yaml:"fromName" mapstructure:"fromName"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"maxRetries" mapstructure:"maxRetries"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"required|in:memory,postgres"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	MaxSyncLogs int    `yaml:"maxSyncLogs" mapstructure:"maxSyncLogs"`
	AutoMigrate bool   `yaml:"autoMigrate" mapstructure:"autoMigrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Driver  string        `yaml:"driver" mapstructure:"driver" validate:"in:memory,redis"`
	Size    int           `yaml:"size" mapstructure:"size"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

type SecurityConfig struct {
	CronSecret string `yaml:"cronSecret" mapstructure:"cronSecret"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server           `yaml:"webServer" mapstructure:"webServer"`
	Logger      LoggerConfig     `yaml:"logger" mapstructure:"logger"`
	Codeforces  CodeforcesConfig `yaml:"codeforces" mapstructure:"codeforces"`
	Sync        SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Reminder    ReminderConfig   `yaml:"reminder" mapstructure:"reminder"`
	Mail        MailConfig       `yaml:"mail" mapstructure:"mail"`
	Storage     StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Persistence Persistence      `yaml:"persistence" mapstructure:"persistence"`
	Cache       CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Metrics     MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Security    SecurityConfig   `yaml:"security" mapstructure:"security"`
}
