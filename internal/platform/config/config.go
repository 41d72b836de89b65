package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more
// paths to load from specific files; with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or
// fallback if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by
// key, or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvMillis reads an integer number of milliseconds from the environment
// and returns it as a duration, or fallbackMillis when unset or invalid.
func GetEnvMillis(key string, fallbackMillis int) time.Duration {
	return time.Duration(GetEnvInt(key, fallbackMillis)) * time.Millisecond
}

// Settings is the full service configuration, resolved once at startup.
type Settings struct {
	Port      string
	LogLevel  string
	LogFormat string

	Region          string
	EngineRoleARN   string
	EngineEndpoint  string
	SessionsTable   string
	AccessKeyID     string
	SecretAccessKey string

	StabilityStrategy           string
	StabilityMaxWait            time.Duration
	StabilityThreshold          time.Duration
	StabilityPollInterval       time.Duration
	StabilityRequiredIterations int
	ClipExtension               string

	MaxInputsPerJob   int
	BatchPollInterval time.Duration
	MaxBatchWait      time.Duration

	VideoBitrate     int
	VideoWidth       int
	VideoHeight      int
	HLSSegmentLength int
	AudioBitrate     int
	AudioSampleRate  int
}

// FromEnv resolves Settings from the environment, applying defaults.
func FromEnv() Settings {
	return Settings{
		Port:      GetEnv("PORT", "8080"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "json"),

		Region:          GetEnv("AWS_REGION", "us-east-1"),
		EngineRoleARN:   GetEnv("ENGINE_ROLE_ARN", ""),
		EngineEndpoint:  GetEnv("ENGINE_ENDPOINT", ""),
		SessionsTable:   GetEnv("SESSIONS_TABLE", ""),
		AccessKeyID:     GetEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: GetEnv("AWS_SECRET_ACCESS_KEY", ""),

		StabilityStrategy:           GetEnv("STABILITY_STRATEGY", "dual"),
		StabilityMaxWait:            GetEnvMillis("STABILITY_MAX_WAIT_MS", 60000),
		StabilityThreshold:          GetEnvMillis("STABILITY_THRESHOLD_MS", 10000),
		StabilityPollInterval:       GetEnvMillis("STABILITY_POLL_INTERVAL_MS", 3000),
		StabilityRequiredIterations: GetEnvInt("STABILITY_REQUIRED_ITERATIONS", 2),
		ClipExtension:               GetEnv("CLIP_EXTENSION", ".mp4"),

		MaxInputsPerJob:   GetEnvInt("MAX_INPUTS_PER_JOB", 149),
		BatchPollInterval: GetEnvMillis("BATCH_POLL_INTERVAL_MS", 5000),
		MaxBatchWait:      GetEnvMillis("MAX_BATCH_WAIT_MS", 600000),

		VideoBitrate:     GetEnvInt("VIDEO_BITRATE", 3000000),
		VideoWidth:       GetEnvInt("VIDEO_WIDTH", 1280),
		VideoHeight:      GetEnvInt("VIDEO_HEIGHT", 720),
		HLSSegmentLength: GetEnvInt("HLS_SEGMENT_LENGTH", 6),
		AudioBitrate:     GetEnvInt("AUDIO_BITRATE", 96000),
		AudioSampleRate:  GetEnvInt("AUDIO_SAMPLE_RATE", 48000),
	}
}

// Validate fails fast on missing or inconsistent required values, so a
// misconfigured deployment dies at startup rather than on first request.
// Explicit credentials take precedence over the ambient provider chain and
// must be set as a pair.
func (s Settings) Validate() error {
	if s.EngineRoleARN == "" {
		return errors.New("ENGINE_ROLE_ARN is required")
	}
	if s.SessionsTable == "" {
		return errors.New("SESSIONS_TABLE is required")
	}
	if (s.AccessKeyID == "") != (s.SecretAccessKey == "") {
		return errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}
	if s.MaxInputsPerJob < 1 {
		return errors.New("MAX_INPUTS_PER_JOB must be at least 1")
	}
	switch s.StabilityStrategy {
	case "dual", "count-only", "age-only":
	default:
		return errors.New("STABILITY_STRATEGY must be one of dual, count-only, age-only")
	}
	return nil
}
