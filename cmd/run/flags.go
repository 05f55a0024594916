package run

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openfga/consentsync/cmd/util"
	"github.com/openfga/consentsync/internal/config"
)

// addFlags declares the flags shared by the sync and resume commands.
func addFlags(flags *pflag.FlagSet) {
	defaultConfig := config.DefaultConfig()

	flags.String("dataservice-url", defaultConfig.Dataservice.URL, "the base URL of the dataservice")
	flags.Duration("dataservice-timeout", defaultConfig.Dataservice.Timeout, "the timeout of a single dataservice request")
	flags.Int("dataservice-retry-max", defaultConfig.Dataservice.RetryMax, "the number of retries of a dataservice request failing with a 5xx or transport error")
	flags.Duration("dataservice-retry-wait-min", defaultConfig.Dataservice.RetryWaitMin, "the first wait between two dataservice attempts")
	flags.Duration("dataservice-retry-wait-max", defaultConfig.Dataservice.RetryWaitMax, "the longest wait between two dataservice attempts")
	flags.Int("dataservice-page-size", defaultConfig.Dataservice.PageSize, "the page size of dataservice list requests")

	flags.String("registry-url", defaultConfig.Registry.URL, "the sample status endpoint of the consent registry")
	flags.Duration("registry-timeout", defaultConfig.Registry.Timeout, "the timeout of a single registry request")
	flags.Int("registry-max-attempts", defaultConfig.Registry.MaxAttempts, "the number of registry requests made for one accession")
	flags.Duration("registry-backoff-initial", defaultConfig.Registry.BackoffInitial, "the first wait between two registry attempts")
	flags.Duration("registry-backoff-max", defaultConfig.Registry.BackoffMax, "the longest wait between two registry attempts")
	flags.StringSlice("registry-released-statuses", defaultConfig.Registry.ReleasedStatuses, "the registration statuses under which consents are published")

	flags.Duration("time-budget", defaultConfig.Pipeline.TimeBudget, "the wall clock time of one invocation, 0 never hands work off")
	flags.Duration("budget-reserve", defaultConfig.Pipeline.BudgetReserve, "the remaining time under which the remaining work is handed off")
	flags.Int("max-item-attempts", defaultConfig.Pipeline.MaxItemAttempts, "the number of times an item may fail before it is dead-lettered")
	flags.Int("study-cache-size", defaultConfig.Pipeline.StudyCacheSize, "the number of studies remembered by a run")

	flags.String("continuation-sink", defaultConfig.Continuation.Sink, "where remaining work is handed off: 'none', 'local', 'file', 'redis' or 's3'")
	flags.String("continuation-dir", defaultConfig.Continuation.Dir, "the checkpoint directory of the 'file' sink")
	flags.String("continuation-redis-addr", defaultConfig.Continuation.Redis.Addr, "the host:port of the redis server of the 'redis' sink")
	flags.String("continuation-redis-username", defaultConfig.Continuation.Redis.Username, "the redis username")
	flags.String("continuation-redis-password", defaultConfig.Continuation.Redis.Password, "the redis password")
	flags.Int("continuation-redis-db", defaultConfig.Continuation.Redis.DB, "the redis database")
	flags.String("continuation-redis-key", defaultConfig.Continuation.Redis.Key, "the redis list checkpoints are pushed onto")
	flags.String("continuation-s3-bucket", defaultConfig.Continuation.S3.Bucket, "the bucket of the 's3' sink")
	flags.String("continuation-s3-region", defaultConfig.Continuation.S3.Region, "the region of the checkpoint bucket")
	flags.String("continuation-s3-endpoint", defaultConfig.Continuation.S3.Endpoint, "an S3 compatible endpoint overriding the AWS one")
	flags.String("continuation-s3-prefix", defaultConfig.Continuation.S3.Prefix, "the key prefix of checkpoint objects")
	flags.Bool("continuation-s3-path-style", defaultConfig.Continuation.S3.PathStyle, "use path style bucket addressing")

	flags.Int("max-concurrent-studies", defaultConfig.Sync.MaxConcurrentStudies, "the number of studies synced at the same time with --all")

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in")
	flags.String("log-level", defaultConfig.Log.Level, "the log level to use")
	flags.String("log-timestamp-format", defaultConfig.Log.TimestampFormat, "the timestamp format to use for log messages")

	flags.Bool("trace-enabled", defaultConfig.Trace.Enabled, "enable tracing")
	flags.String("trace-otlp-endpoint", defaultConfig.Trace.OTLP.Endpoint, "the endpoint of the trace collector")
	flags.Bool("trace-otlp-tls-enabled", defaultConfig.Trace.OTLP.TLS.Enabled, "use TLS connection for trace collector")
	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of traces to sample. 1 means all, 0 means none")
	flags.String("trace-service-name", defaultConfig.Trace.ServiceName, "the service name included in sampled traces")

	flags.Bool("metrics-enabled", defaultConfig.Metrics.Enabled, "enable/disable prometheus metrics on the '/metrics' endpoint")
	flags.String("metrics-addr", defaultConfig.Metrics.Addr, "the host:port address to serve the prometheus metrics server on")
}

// bindFlagsFunc binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindFlagsFunc(flags *pflag.FlagSet) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, _ []string) {
		util.MustBindPFlag("dataservice.url", flags.Lookup("dataservice-url"))
		util.MustBindEnv("dataservice.url", "CONSENTSYNC_DATASERVICE_URL")

		util.MustBindPFlag("dataservice.timeout", flags.Lookup("dataservice-timeout"))
		util.MustBindEnv("dataservice.timeout", "CONSENTSYNC_DATASERVICE_TIMEOUT")

		util.MustBindPFlag("dataservice.retryMax", flags.Lookup("dataservice-retry-max"))
		util.MustBindEnv("dataservice.retryMax", "CONSENTSYNC_DATASERVICE_RETRY_MAX", "CONSENTSYNC_DATASERVICE_RETRYMAX")

		util.MustBindPFlag("dataservice.retryWaitMin", flags.Lookup("dataservice-retry-wait-min"))
		util.MustBindEnv("dataservice.retryWaitMin", "CONSENTSYNC_DATASERVICE_RETRY_WAIT_MIN", "CONSENTSYNC_DATASERVICE_RETRYWAITMIN")

		util.MustBindPFlag("dataservice.retryWaitMax", flags.Lookup("dataservice-retry-wait-max"))
		util.MustBindEnv("dataservice.retryWaitMax", "CONSENTSYNC_DATASERVICE_RETRY_WAIT_MAX", "CONSENTSYNC_DATASERVICE_RETRYWAITMAX")

		util.MustBindPFlag("dataservice.pageSize", flags.Lookup("dataservice-page-size"))
		util.MustBindEnv("dataservice.pageSize", "CONSENTSYNC_DATASERVICE_PAGE_SIZE", "CONSENTSYNC_DATASERVICE_PAGESIZE")

		util.MustBindPFlag("registry.url", flags.Lookup("registry-url"))
		util.MustBindEnv("registry.url", "CONSENTSYNC_REGISTRY_URL")

		util.MustBindPFlag("registry.timeout", flags.Lookup("registry-timeout"))
		util.MustBindEnv("registry.timeout", "CONSENTSYNC_REGISTRY_TIMEOUT")

		util.MustBindPFlag("registry.maxAttempts", flags.Lookup("registry-max-attempts"))
		util.MustBindEnv("registry.maxAttempts", "CONSENTSYNC_REGISTRY_MAX_ATTEMPTS", "CONSENTSYNC_REGISTRY_MAXATTEMPTS")

		util.MustBindPFlag("registry.backoffInitial", flags.Lookup("registry-backoff-initial"))
		util.MustBindEnv("registry.backoffInitial", "CONSENTSYNC_REGISTRY_BACKOFF_INITIAL", "CONSENTSYNC_REGISTRY_BACKOFFINITIAL")

		util.MustBindPFlag("registry.backoffMax", flags.Lookup("registry-backoff-max"))
		util.MustBindEnv("registry.backoffMax", "CONSENTSYNC_REGISTRY_BACKOFF_MAX", "CONSENTSYNC_REGISTRY_BACKOFFMAX")

		util.MustBindPFlag("registry.releasedStatuses", flags.Lookup("registry-released-statuses"))
		util.MustBindEnv("registry.releasedStatuses", "CONSENTSYNC_REGISTRY_RELEASED_STATUSES", "CONSENTSYNC_REGISTRY_RELEASEDSTATUSES")

		util.MustBindPFlag("pipeline.timeBudget", flags.Lookup("time-budget"))
		util.MustBindEnv("pipeline.timeBudget", "CONSENTSYNC_PIPELINE_TIME_BUDGET", "CONSENTSYNC_PIPELINE_TIMEBUDGET")

		util.MustBindPFlag("pipeline.budgetReserve", flags.Lookup("budget-reserve"))
		util.MustBindEnv("pipeline.budgetReserve", "CONSENTSYNC_PIPELINE_BUDGET_RESERVE", "CONSENTSYNC_PIPELINE_BUDGETRESERVE")

		util.MustBindPFlag("pipeline.maxItemAttempts", flags.Lookup("max-item-attempts"))
		util.MustBindEnv("pipeline.maxItemAttempts", "CONSENTSYNC_PIPELINE_MAX_ITEM_ATTEMPTS", "CONSENTSYNC_PIPELINE_MAXITEMATTEMPTS")

		util.MustBindPFlag("pipeline.studyCacheSize", flags.Lookup("study-cache-size"))
		util.MustBindEnv("pipeline.studyCacheSize", "CONSENTSYNC_PIPELINE_STUDY_CACHE_SIZE", "CONSENTSYNC_PIPELINE_STUDYCACHESIZE")

		util.MustBindPFlag("continuation.sink", flags.Lookup("continuation-sink"))
		util.MustBindEnv("continuation.sink", "CONSENTSYNC_CONTINUATION_SINK")

		util.MustBindPFlag("continuation.dir", flags.Lookup("continuation-dir"))
		util.MustBindEnv("continuation.dir", "CONSENTSYNC_CONTINUATION_DIR")

		util.MustBindPFlag("continuation.redis.addr", flags.Lookup("continuation-redis-addr"))
		util.MustBindEnv("continuation.redis.addr", "CONSENTSYNC_CONTINUATION_REDIS_ADDR")

		util.MustBindPFlag("continuation.redis.username", flags.Lookup("continuation-redis-username"))
		util.MustBindEnv("continuation.redis.username", "CONSENTSYNC_CONTINUATION_REDIS_USERNAME")

		util.MustBindPFlag("continuation.redis.password", flags.Lookup("continuation-redis-password"))
		util.MustBindEnv("continuation.redis.password", "CONSENTSYNC_CONTINUATION_REDIS_PASSWORD")

		util.MustBindPFlag("continuation.redis.db", flags.Lookup("continuation-redis-db"))
		util.MustBindEnv("continuation.redis.db", "CONSENTSYNC_CONTINUATION_REDIS_DB")

		util.MustBindPFlag("continuation.redis.key", flags.Lookup("continuation-redis-key"))
		util.MustBindEnv("continuation.redis.key", "CONSENTSYNC_CONTINUATION_REDIS_KEY")

		util.MustBindPFlag("continuation.s3.bucket", flags.Lookup("continuation-s3-bucket"))
		util.MustBindEnv("continuation.s3.bucket", "CONSENTSYNC_CONTINUATION_S3_BUCKET")

		util.MustBindPFlag("continuation.s3.region", flags.Lookup("continuation-s3-region"))
		util.MustBindEnv("continuation.s3.region", "CONSENTSYNC_CONTINUATION_S3_REGION")

		util.MustBindPFlag("continuation.s3.endpoint", flags.Lookup("continuation-s3-endpoint"))
		util.MustBindEnv("continuation.s3.endpoint", "CONSENTSYNC_CONTINUATION_S3_ENDPOINT")

		util.MustBindPFlag("continuation.s3.prefix", flags.Lookup("continuation-s3-prefix"))
		util.MustBindEnv("continuation.s3.prefix", "CONSENTSYNC_CONTINUATION_S3_PREFIX")

		util.MustBindPFlag("continuation.s3.pathStyle", flags.Lookup("continuation-s3-path-style"))
		util.MustBindEnv("continuation.s3.pathStyle", "CONSENTSYNC_CONTINUATION_S3_PATH_STYLE", "CONSENTSYNC_CONTINUATION_S3_PATHSTYLE")

		util.MustBindPFlag("sync.maxConcurrentStudies", flags.Lookup("max-concurrent-studies"))
		util.MustBindEnv("sync.maxConcurrentStudies", "CONSENTSYNC_SYNC_MAX_CONCURRENT_STUDIES", "CONSENTSYNC_SYNC_MAXCONCURRENTSTUDIES")

		util.MustBindPFlag("log.format", flags.Lookup("log-format"))
		util.MustBindEnv("log.format", "CONSENTSYNC_LOG_FORMAT")

		util.MustBindPFlag("log.level", flags.Lookup("log-level"))
		util.MustBindEnv("log.level", "CONSENTSYNC_LOG_LEVEL")

		util.MustBindPFlag("log.timestampFormat", flags.Lookup("log-timestamp-format"))
		util.MustBindEnv("log.timestampFormat", "CONSENTSYNC_LOG_TIMESTAMP_FORMAT", "CONSENTSYNC_LOG_TIMESTAMPFORMAT")

		util.MustBindPFlag("trace.enabled", flags.Lookup("trace-enabled"))
		util.MustBindEnv("trace.enabled", "CONSENTSYNC_TRACE_ENABLED")

		util.MustBindPFlag("trace.otlp.endpoint", flags.Lookup("trace-otlp-endpoint"))
		util.MustBindEnv("trace.otlp.endpoint", "CONSENTSYNC_TRACE_OTLP_ENDPOINT")

		util.MustBindPFlag("trace.otlp.tls.enabled", flags.Lookup("trace-otlp-tls-enabled"))
		util.MustBindEnv("trace.otlp.tls.enabled", "CONSENTSYNC_TRACE_OTLP_TLS_ENABLED")

		util.MustBindPFlag("trace.sampleRatio", flags.Lookup("trace-sample-ratio"))
		util.MustBindEnv("trace.sampleRatio", "CONSENTSYNC_TRACE_SAMPLE_RATIO", "CONSENTSYNC_TRACE_SAMPLERATIO")

		util.MustBindPFlag("trace.serviceName", flags.Lookup("trace-service-name"))
		util.MustBindEnv("trace.serviceName", "CONSENTSYNC_TRACE_SERVICE_NAME", "CONSENTSYNC_TRACE_SERVICENAME")

		util.MustBindPFlag("metrics.enabled", flags.Lookup("metrics-enabled"))
		util.MustBindEnv("metrics.enabled", "CONSENTSYNC_METRICS_ENABLED")

		util.MustBindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
		util.MustBindEnv("metrics.addr", "CONSENTSYNC_METRICS_ADDR")
	}
}
