package config

import (
	detectionService "SentinelAI/internal/api/detection/service"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const DefaultLocation = "Main Entrance Cam-01"

type DetectionConfig struct {
	SkinRatioThreshold         float64 `validate:"gt=0,lte=1"`
	AssumeMaskWhenUnsampleable bool
}

type FeedConfig struct {
	TickInterval  time.Duration `validate:"gt=0"`
	DetectTimeout time.Duration `validate:"gt=0"`
	FrameMaxAge   time.Duration `validate:"gte=0"`
	AutoStart     bool
}

type AlertConfig struct {
	SampleThreshold       float64 `validate:"gte=0,lte=1"`
	SnapshotQuality       int     `validate:"gte=1,lte=100"`
	WarningMessage        string  `validate:"required"`
	WarningRate           float64 `validate:"gt=0,lte=4"`
	AudioEnabled          bool
	CountCompliantEntries bool
}

type AudioConfig struct {
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	OpenAIAPIKey      string
	OpenAIVoice       string
	PlayerCommand     string
	SpeakTimeout      time.Duration `validate:"gt=0"`
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PresignTTL      time.Duration `validate:"gte=0"`
}

type RedisConfig struct {
	Address          string
	Password         string
	DB               int `validate:"gte=0"`
	ViolationChannel string
	StatusChannel    string
}

type SMTPConfig struct {
	Host          string
	Port          int    `validate:"gte=0,lte=65535"`
	Mail          string `validate:"omitempty,email"`
	Password      string
	SecurityEmail string `validate:"omitempty,email"`
}

type AppConfig struct {
	Port             string        `validate:"required,numeric"`
	Location         string        `validate:"required"`
	DetectorURL      string        `validate:"omitempty,url"`
	RateLimitRPS     float64       `validate:"gt=0"`
	RateLimitBurst   int           `validate:"gt=0"`
	ArchiveQueueSize int           `validate:"gt=0"`
	ShutdownTimeout  time.Duration `validate:"gt=0"`
	Detection        DetectionConfig
	Feed             FeedConfig
	Alert            AlertConfig
	Audio            AudioConfig
	AWS              AWSConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
}

// Load reads the process environment. Unset variables take their defaults;
// malformed values are reported rather than silently defaulted.
func Load() (*AppConfig, error) {
	return load(os.Getenv, NewValidator())
}

func load(getenv func(string) string, v *validator.Validate) (*AppConfig, error) {
	e := &envReader{getenv: getenv}

	cfg := &AppConfig{
		Port:             e.str("APP_PORT", "3000"),
		Location:         e.str("CAMERA_LOCATION", DefaultLocation),
		DetectorURL:      e.str("AI_FACE_DETECTION_URL", ""),
		RateLimitRPS:     e.float("RATE_LIMIT_RPS", 50),
		RateLimitBurst:   e.int("RATE_LIMIT_BURST", 100),
		ArchiveQueueSize: e.int("ARCHIVE_QUEUE_SIZE", 64),
		ShutdownTimeout:  e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Detection: DetectionConfig{
			SkinRatioThreshold:         e.float("DETECTION_SKIN_RATIO_THRESHOLD", 0.08),
			AssumeMaskWhenUnsampleable: e.bool("DETECTION_ASSUME_MASK_UNSAMPLEABLE", true),
		},
		Feed: FeedConfig{
			TickInterval:  e.duration("FEED_TICK_INTERVAL", 100*time.Millisecond),
			DetectTimeout: e.duration("FEED_DETECT_TIMEOUT", 2*time.Second),
			FrameMaxAge:   e.duration("FEED_FRAME_MAX_AGE", 2*time.Second),
			AutoStart:     e.bool("FEED_AUTO_START", true),
		},
		Alert: AlertConfig{
			SampleThreshold:       e.float("ALERT_SAMPLE_THRESHOLD", detectionService.DefaultSampleThreshold),
			SnapshotQuality:       e.int("ALERT_SNAPSHOT_QUALITY", detectionService.DefaultSnapshotQuality),
			WarningMessage:        e.str("ALERT_WARNING_MESSAGE", detectionService.DefaultWarningMessage),
			WarningRate:           e.float("ALERT_WARNING_RATE", detectionService.DefaultWarningRate),
			AudioEnabled:          e.bool("ALERT_AUDIO_ENABLED", true),
			CountCompliantEntries: e.bool("ALERT_COUNT_COMPLIANT_ENTRIES", true),
		},
		Audio: AudioConfig{
			ElevenLabsAPIKey:  e.str("ELEVENLABS_API_KEY", ""),
			ElevenLabsVoiceID: e.str("ELEVENLABS_VOICE_ID", ""),
			OpenAIAPIKey:      e.str("OPENAI_API_KEY", ""),
			OpenAIVoice:       e.str("OPENAI_TTS_VOICE", ""),
			PlayerCommand:     e.str("AUDIO_PLAYER_CMD", "mpg123 -q -"),
			SpeakTimeout:      e.duration("AUDIO_SPEAK_TIMEOUT", 15*time.Second),
		},
		AWS: AWSConfig{
			Region:          e.str("AWS_REGION", "ap-southeast-1"),
			AccessKeyID:     e.str("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: e.str("AWS_SECRET_ACCESS_KEY", ""),
			BucketName:      e.str("AWS_BUCKET_NAME", ""),
			PresignTTL:      e.duration("AWS_PRESIGN_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Address:          e.str("REDIS_ADDRESS", ""),
			Password:         e.str("REDIS_PASSWORD", ""),
			DB:               e.int("REDIS_DB", 0),
			ViolationChannel: e.str("REDIS_VIOLATION_CHANNEL", "sentinel:violations"),
			StatusChannel:    e.str("REDIS_STATUS_CHANNEL", "sentinel:status"),
		},
		SMTP: SMTPConfig{
			Host:          e.str("SMTP_HOST", "smtp.gmail.com"),
			Port:          e.int("SMTP_PORT", 587),
			Mail:          e.str("SMTP_MAIL", ""),
			Password:      e.str("SMTP_PASSWORD", ""),
			SecurityEmail: e.str("SECURITY_EMAIL", ""),
		},
	}

	if len(e.errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(e.errs, "; "))
	}

	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *AppConfig) DetectionServiceConfig() detectionService.Config {
	cfg := detectionService.DefaultConfig()
	cfg.SkinRatioThreshold = c.Detection.SkinRatioThreshold
	cfg.AssumeMaskWhenUnsampleable = c.Detection.AssumeMaskWhenUnsampleable
	return cfg
}

func (c *AppConfig) AlertDispatcherConfig() detectionService.AlertConfig {
	return detectionService.AlertConfig{
		SampleThreshold:       c.Alert.SampleThreshold,
		SnapshotQuality:       c.Alert.SnapshotQuality,
		WarningMessage:        c.Alert.WarningMessage,
		WarningRate:           c.Alert.WarningRate,
		AudioEnabled:          c.Alert.AudioEnabled,
		CountCompliantEntries: c.Alert.CountCompliantEntries,
	}
}

type envReader struct {
	getenv func(string) string
	errs   []string
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not an integer", key, raw))
		return def
	}
	return v
}

func (e *envReader) float(key string, def float64) float64 {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a number", key, raw))
		return def
	}
	return v
}

func (e *envReader) bool(key string, def bool) bool {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a boolean", key, raw))
		return def
	}
	return v
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(e.getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a duration", key, raw))
		return def
	}
	return v
}
