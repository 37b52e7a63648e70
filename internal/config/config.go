package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Alert      AlertConfig      `yaml:"alert" mapstructure:"alert"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Embedding  EmbeddingConfig  `yaml:"embedding" mapstructure:"embedding"`
	Camera     CameraConfig     `yaml:"camera" mapstructure:"camera"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Web        WebConfig        `yaml:"web" mapstructure:"web"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SessionConfig controls the training bursts and the detection loop.
type SessionConfig struct {
	BurstSize      int           `yaml:"burst_size" mapstructure:"burst_size"`           // samples per training burst
	SampleInterval time.Duration `yaml:"sample_interval" mapstructure:"sample_interval"` // pause between burst samples
	RunInterval    time.Duration `yaml:"run_interval" mapstructure:"run_interval"`       // pause between detections
	AutoRun        bool          `yaml:"auto_run" mapstructure:"auto_run"`               // start detecting right after training 2
}

type ClassifierConfig struct {
	K               int     `yaml:"k" mapstructure:"k"`
	Index           string  `yaml:"index" mapstructure:"index"` // exact or hnsw
	TouchConfidence float64 `yaml:"touch_confidence" mapstructure:"touch_confidence"`
}

type AlertConfig struct {
	SoundCommand string   `yaml:"sound_command" mapstructure:"sound_command"` // empty means the browser plays the sound
	SoundArgs    []string `yaml:"sound_args" mapstructure:"sound_args"`
}

type NotifyConfig struct {
	Cooldown     time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Language     string        `yaml:"language" mapstructure:"language"`
	WebhookURL   string        `yaml:"webhook_url" mapstructure:"webhook_url"`
	MQTTBroker   string        `yaml:"mqtt_broker" mapstructure:"mqtt_broker"` // host:port
	MQTTTopic    string        `yaml:"mqtt_topic" mapstructure:"mqtt_topic"`
	RedisURL     string        `yaml:"redis_url" mapstructure:"redis_url"`
	RedisChannel string        `yaml:"redis_channel" mapstructure:"redis_channel"`
}

type EmbeddingConfig struct {
	URL       string `yaml:"url" mapstructure:"url"`
	Dim       int    `yaml:"dim" mapstructure:"dim"`
	InputSize int    `yaml:"input_size" mapstructure:"input_size"` // square model input in pixels
}

type CameraConfig struct {
	Source      string `yaml:"source" mapstructure:"source"` // push, dir or snapshot
	Dir         string `yaml:"dir" mapstructure:"dir"`
	SnapshotURL string `yaml:"snapshot_url" mapstructure:"snapshot_url"`
	FPS         int    `yaml:"fps" mapstructure:"fps"`

	OpenTimeout time.Duration `yaml:"open_timeout" mapstructure:"open_timeout"` // wait for the first pushed frame
}

type DatabaseConfig struct {
	URL          string `yaml:"url" mapstructure:"url"` // PostgreSQL connection URL, journal disabled when empty
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
}

type WebConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"` // CORS whitelist besides localhost
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a Go duration string such as "150ms", falling back to defaultVal.
// Zero is accepted so tests and demos can disable the pauses.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load returns the embedded defaults overridden by environment variables.
func Load() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile is like Load but applies a YAML, TOML or JSON config file between the
// embedded defaults and the environment. Keys missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Session.BurstSize = envInt("SESSION_BURST_SIZE", c.Session.BurstSize)
	c.Session.SampleInterval = envDuration("SESSION_SAMPLE_INTERVAL", c.Session.SampleInterval)
	c.Session.RunInterval = envDuration("SESSION_RUN_INTERVAL", c.Session.RunInterval)
	c.Session.AutoRun = envBool("SESSION_AUTO_RUN", c.Session.AutoRun)

	c.Classifier.K = envInt("CLASSIFIER_K", c.Classifier.K)
	c.Classifier.Index = envString("CLASSIFIER_INDEX", c.Classifier.Index)
	c.Classifier.TouchConfidence = envFloat("TOUCH_CONFIDENCE", c.Classifier.TouchConfidence)

	c.Alert.SoundCommand = envString("ALERT_SOUND_COMMAND", c.Alert.SoundCommand)
	if args := os.Getenv("ALERT_SOUND_ARGS"); args != "" {
		c.Alert.SoundArgs = strings.Fields(args)
	}

	c.Notify.Cooldown = envDuration("NOTIFY_COOLDOWN", c.Notify.Cooldown)
	c.Notify.Timeout = envDuration("NOTIFY_TIMEOUT", c.Notify.Timeout)
	c.Notify.Language = envString("NOTIFY_LANGUAGE", c.Notify.Language)
	c.Notify.WebhookURL = envString("NOTIFY_WEBHOOK_URL", c.Notify.WebhookURL)
	c.Notify.MQTTBroker = envString("MQTT_BROKER", c.Notify.MQTTBroker)
	c.Notify.MQTTTopic = envString("MQTT_TOPIC", c.Notify.MQTTTopic)
	c.Notify.RedisURL = envString("REDIS_URL", c.Notify.RedisURL)
	c.Notify.RedisChannel = envString("REDIS_CHANNEL", c.Notify.RedisChannel)

	c.Embedding.URL = envString("EMBEDDING_URL", c.Embedding.URL)
	c.Embedding.Dim = envInt("EMBEDDING_DIM", c.Embedding.Dim)
	c.Embedding.InputSize = envInt("EMBEDDING_INPUT_SIZE", c.Embedding.InputSize)

	c.Camera.Source = envString("CAMERA_SOURCE", c.Camera.Source)
	c.Camera.Dir = envString("CAMERA_DIR", c.Camera.Dir)
	c.Camera.SnapshotURL = envString("CAMERA_SNAPSHOT_URL", c.Camera.SnapshotURL)
	c.Camera.FPS = envInt("CAMERA_FPS", c.Camera.FPS)
	c.Camera.OpenTimeout = envDuration("CAMERA_OPEN_TIMEOUT", c.Camera.OpenTimeout)

	c.Database.URL = envString("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	c.Web.Host = envString("WEB_HOST", c.Web.Host)
	c.Web.Port = envInt("WEB_PORT", c.Web.Port)
	if origins := os.Getenv("WEB_ALLOWED_ORIGINS"); origins != "" {
		c.Web.AllowedOrigins = strings.Split(origins, ",")
	}

	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("LOG_FORMAT", c.Log.Format)
}

// Validate rejects settings the session cannot run with.
func (c *Config) Validate() error {
	if c.Session.BurstSize <= 0 {
		return fmt.Errorf("session burst_size must be positive, got %d", c.Session.BurstSize)
	}
	if c.Classifier.K <= 0 {
		return fmt.Errorf("classifier k must be positive, got %d", c.Classifier.K)
	}
	if c.Classifier.TouchConfidence <= 0 || c.Classifier.TouchConfidence >= 1 {
		return fmt.Errorf("touch_confidence must be in (0, 1), got %v", c.Classifier.TouchConfidence)
	}
	switch c.Classifier.Index {
	case "exact", "hnsw":
	default:
		return fmt.Errorf("unknown classifier index %q (want exact or hnsw)", c.Classifier.Index)
	}
	switch c.Camera.Source {
	case "push", "dir", "snapshot":
	default:
		return fmt.Errorf("unknown camera source %q (want push, dir or snapshot)", c.Camera.Source)
	}
	return nil
}
