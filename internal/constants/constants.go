package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	LLMTimeout         = 30 * time.Second
	RequestTimeout     = 90 * time.Second
)

const (
	RetryAttempts = 3
	RetryDelay    = 1 * time.Second
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultArenaBaseURL = "https://arena.5eplay.com"
	DefaultGateBaseURL  = "https://gate.5eplay.com"
	UserAgent           = "Mozilla/5.0 (X11; Linux x86_64; rv:146.0) Gecko/20100101 Firefox/146.0"
	PlatformOrigin      = "https://arena-next.5eplaycdn.com"
)

const (
	UserDataFile    = "user_data.json"
	TelegramWorkers = 8
	TelegramTimeout = 60
)
