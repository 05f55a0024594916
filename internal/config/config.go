// Package config contains all knobs and defaults used to configure a consent sync.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultRegistryURL = "https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/GetSampleStatus.cgi"

	DefaultUpstreamTimeout = 30 * time.Second
	DefaultRetryMax        = 3
	DefaultRetryWaitMin    = 200 * time.Millisecond
	DefaultRetryWaitMax    = 3 * time.Second

	DefaultRegistryBackoffInitial = 500 * time.Millisecond
	DefaultRegistryBackoffMax     = 3 * time.Second

	// DefaultTimeBudget matches the longest invocation a function runtime grants a worker.
	DefaultTimeBudget = 15 * time.Minute

	// DefaultBudgetReserve is the remaining time under which no new item is started and the
	// remaining work is handed to a continuation.
	DefaultBudgetReserve = 15 * time.Second

	DefaultMaxItemAttempts      = 3
	DefaultStudyCacheSize       = 1000
	DefaultMaxConcurrentStudies = 1
	DefaultPageSize             = 100

	ContinuationSinkNone  = "none"
	ContinuationSinkLocal = "local"
	ContinuationSinkFile  = "file"
	ContinuationSinkRedis = "redis"
	ContinuationSinkS3    = "s3"
)

// DataserviceConfig defines how the record store is reached.
type DataserviceConfig struct {
	// URL is the base URL of the record store, e.g. 'https://dataservice.example.org'.
	URL string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// RetryMax is the number of retries after the first attempt for 5xx and transport errors.
	RetryMax int

	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// PageSize is the 'limit' used on list endpoints.
	PageSize int
}

// RegistryConfig defines how the consent registry is reached.
type RegistryConfig struct {
	URL     string
	Timeout time.Duration

	// MaxAttempts bounds the number of requests made for one accession.
	MaxAttempts int

	// BackoffInitial and BackoffMax are the first and the longest wait between two
	// registry attempts.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// ReleasedStatuses are the registration statuses under which sample consents are published.
	ReleasedStatuses []string
}

// PipelineConfig defines the time budget and retry policy of a single invocation.
type PipelineConfig struct {
	// TimeBudget is the wall clock time one invocation may use. 0 disables continuation.
	TimeBudget time.Duration

	// BudgetReserve is the remaining budget below which the controller stops and continues.
	BudgetReserve time.Duration

	// MaxItemAttempts is how many times an item may fail before it is dead-lettered.
	MaxItemAttempts int

	// StudyCacheSize bounds the run scoped study resolution cache.
	StudyCacheSize int
}

type RedisContinuationConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Key      string
}

type S3ContinuationConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// ContinuationConfig selects where unfinished work is handed off.
type ContinuationConfig struct {
	// Sink is one of 'none', 'local', 'file', 'redis' or 's3'.
	Sink string

	// Dir is the checkpoint directory of the 'file' sink.
	Dir string

	Redis RedisContinuationConfig
	S3    S3ContinuationConfig `mapstructure:"s3"`
}

// SyncConfig defines settings of the multi-study sync.
type SyncConfig struct {
	MaxConcurrentStudies int
}

// LogConfig defines configurations for log specific settings. For production we
// recommend using the 'json' log format.
type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string

	// Format of the timestamp in the log output (e.g. 'Unix'(default) or 'ISO8601')
	TimestampFormat string
}

type TraceConfig struct {
	Enabled     bool
	OTLP        OTLPTraceConfig `mapstructure:"otlp"`
	SampleRatio float64
	ServiceName string
}

type OTLPTraceConfig struct {
	Endpoint string
	TLS      OTLPTraceTLSConfig
}

type OTLPTraceTLSConfig struct {
	Enabled bool
}

// MetricConfig defines configurations for serving custom metrics.
type MetricConfig struct {
	Enabled bool
	Addr    string
}

type Config struct {
	Dataservice  DataserviceConfig
	Registry     RegistryConfig
	Pipeline     PipelineConfig
	Continuation ContinuationConfig
	Sync         SyncConfig
	Log          LogConfig
	Trace        TraceConfig
	Metrics      MetricConfig
}

func (cfg *Config) Verify() error {
	if cfg.Dataservice.URL == "" {
		return errors.New("config 'dataservice.url' must be set")
	}

	if cfg.Dataservice.RetryMax < 0 {
		return errors.New("config 'dataservice.retryMax' cannot be negative")
	}

	if cfg.Dataservice.PageSize <= 0 {
		return errors.New("config 'dataservice.pageSize' must be greater than zero")
	}

	if cfg.Registry.URL == "" {
		return errors.New("config 'registry.url' must be set")
	}

	if cfg.Registry.MaxAttempts < 1 {
		return errors.New("config 'registry.maxAttempts' must be at least 1")
	}

	if cfg.Registry.BackoffInitial <= 0 || cfg.Registry.BackoffMax < cfg.Registry.BackoffInitial {
		return fmt.Errorf(
			"config 'registry.backoffInitial' (%s) must be positive and not exceed 'registry.backoffMax' (%s)",
			cfg.Registry.BackoffInitial,
			cfg.Registry.BackoffMax,
		)
	}

	if len(cfg.Registry.ReleasedStatuses) == 0 {
		return errors.New("config 'registry.releasedStatuses' must not be empty")
	}

	if cfg.Pipeline.TimeBudget < 0 {
		return errors.New("config 'pipeline.timeBudget' cannot be negative")
	}

	if cfg.Pipeline.TimeBudget > 0 && cfg.Pipeline.BudgetReserve >= cfg.Pipeline.TimeBudget {
		return fmt.Errorf(
			"config 'pipeline.budgetReserve' (%s) must be lower than 'pipeline.timeBudget' (%s)",
			cfg.Pipeline.BudgetReserve,
			cfg.Pipeline.TimeBudget,
		)
	}

	if cfg.Pipeline.MaxItemAttempts < 1 {
		return errors.New("config 'pipeline.maxItemAttempts' must be at least 1")
	}

	if cfg.Pipeline.StudyCacheSize < 1 {
		return errors.New("config 'pipeline.studyCacheSize' must be at least 1")
	}

	switch cfg.Continuation.Sink {
	case ContinuationSinkNone, ContinuationSinkLocal:
	case ContinuationSinkFile:
		if cfg.Continuation.Dir == "" {
			return errors.New("config 'continuation.dir' must be set for the 'file' sink")
		}
	case ContinuationSinkRedis:
		if cfg.Continuation.Redis.Addr == "" || cfg.Continuation.Redis.Key == "" {
			return errors.New("'continuation.redis.addr' and 'continuation.redis.key' configs must be set")
		}
	case ContinuationSinkS3:
		if cfg.Continuation.S3.Bucket == "" {
			return errors.New("config 'continuation.s3.bucket' must be set for the 's3' sink")
		}
	default:
		return fmt.Errorf("config 'continuation.sink' must be one of ['none', 'local', 'file', 'redis', 's3']")
	}

	if cfg.Sync.MaxConcurrentStudies < 1 {
		return errors.New("config 'sync.maxConcurrentStudies' must be at least 1")
	}

	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("config 'log.format' must be one of ['text', 'json']")
	}

	if cfg.Log.Level != "none" &&
		cfg.Log.Level != "debug" &&
		cfg.Log.Level != "info" &&
		cfg.Log.Level != "warn" &&
		cfg.Log.Level != "error" &&
		cfg.Log.Level != "panic" &&
		cfg.Log.Level != "fatal" {
		return fmt.Errorf(
			"config 'log.level' must be one of ['none', 'debug', 'info', 'warn', 'error', 'panic', 'fatal']",
		)
	}

	if cfg.Log.TimestampFormat != "Unix" && cfg.Log.TimestampFormat != "ISO8601" {
		return fmt.Errorf("config 'log.TimestampFormat' must be one of ['Unix', 'ISO8601']")
	}

	if cfg.Trace.Enabled && (cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1) {
		return errors.New("config 'trace.sampleRatio' must be between 0 and 1")
	}

	return nil
}

// DefaultConfig is the default consent sync configuration.
func DefaultConfig() *Config {
	return &Config{
		Dataservice: DataserviceConfig{
			URL:          "",
			Timeout:      DefaultUpstreamTimeout,
			RetryMax:     DefaultRetryMax,
			RetryWaitMin: DefaultRetryWaitMin,
			RetryWaitMax: DefaultRetryWaitMax,
			PageSize:     DefaultPageSize,
		},
		Registry: RegistryConfig{
			URL:              DefaultRegistryURL,
			Timeout:          DefaultUpstreamTimeout,
			MaxAttempts:      DefaultRetryMax,
			BackoffInitial:   DefaultRegistryBackoffInitial,
			BackoffMax:       DefaultRegistryBackoffMax,
			ReleasedStatuses: []string{"released"},
		},
		Pipeline: PipelineConfig{
			TimeBudget:      DefaultTimeBudget,
			BudgetReserve:   DefaultBudgetReserve,
			MaxItemAttempts: DefaultMaxItemAttempts,
			StudyCacheSize:  DefaultStudyCacheSize,
		},
		Continuation: ContinuationConfig{
			Sink: ContinuationSinkLocal,
			Redis: RedisContinuationConfig{
				Key: "consentsync:continuations",
			},
			S3: S3ContinuationConfig{
				Region: "us-east-1",
				Prefix: "continuations/",
			},
		},
		Sync: SyncConfig{
			MaxConcurrentStudies: DefaultMaxConcurrentStudies,
		},
		Log: LogConfig{
			Format:          "text",
			Level:           "info",
			TimestampFormat: "Unix",
		},
		Trace: TraceConfig{
			Enabled: false,
			OTLP: OTLPTraceConfig{
				Endpoint: "0.0.0.0:4317",
				TLS: OTLPTraceTLSConfig{
					Enabled: false,
				},
			},
			SampleRatio: 0.2,
			ServiceName: "consentsync",
		},
		Metrics: MetricConfig{
			Enabled: false,
			Addr:    "0.0.0.0:2112",
		},
	}
}

// MustDefaultConfig returns the default config pointed at dataserviceURL with logging,
// tracing and metrics turned off. Used by tests.
func MustDefaultConfig(dataserviceURL string) *Config {
	config := DefaultConfig()

	config.Dataservice.URL = dataserviceURL
	config.Dataservice.RetryWaitMin = time.Millisecond
	config.Dataservice.RetryWaitMax = 5 * time.Millisecond
	config.Registry.BackoffInitial = time.Millisecond
	config.Registry.BackoffMax = 5 * time.Millisecond
	config.Log.Level = "none"
	config.Metrics.Enabled = false

	if err := config.Verify(); err != nil {
		panic(err)
	}

	return config
}
