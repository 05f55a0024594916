// Package run contains the commands that run consent syncs: 'sync' starts new runs and
// 'resume' continues runs from checkpoints.
package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/openfga/consentsync/internal/config"
	"github.com/openfga/consentsync/internal/pipeline"
	"github.com/openfga/consentsync/pkg/continuation"
	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/logger"
	"github.com/openfga/consentsync/pkg/registry"
	"github.com/openfga/consentsync/pkg/syncer"
	"github.com/openfga/consentsync/pkg/telemetry"
)

// ErrRunFailed is returned by the commands when at least one run did not complete.
var ErrRunFailed = errors.New("one or more consent syncs failed")

// NewSyncCommand returns the 'sync' command.
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [study-external-id...]",
		Short: "Sync registry consents onto biospecimens and genomic file ACLs",
		Long: "Sync the consent codes published by the registry for the given studies onto their biospecimens,\n" +
			"then rebuild the access control lists of the genomic files derived from them.\n" +
			"With --all every study of the dataservice is synced.",
		RunE: runSync,
		Args: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all && len(args) > 0 {
				return errors.New("--all cannot be combined with study external ids")
			}
			if !all && len(args) == 0 {
				return errors.New("at least one study external id or --all is required")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Bool("all", false, "sync every study of the dataservice")
	addFlags(flags)

	cmd.PreRun = bindFlagsFunc(flags)

	return cmd
}

// NewResumeCommand returns the 'resume' command.
func NewResumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [checkpoint-file]",
		Short: "Resume consent syncs from checkpoints",
		Long: "Resume the consent sync stored in the given checkpoint file. Without a file, every checkpoint\n" +
			"of the configured continuation sink is resumed, oldest first.",
		Args: cobra.MaximumNArgs(1),
		RunE: runResume,
	}

	addFlags(cmd.Flags())

	cmd.PreRun = bindFlagsFunc(cmd.Flags())

	return cmd
}

// ReadConfig returns the consent sync configuration based on the values provided in the
// 'config.yaml' file, the CONSENTSYNC_* environment variables and the command flags. The
// 'config.yaml' file is loaded from '/etc/consentsync', '$HOME/.consentsync', or the
// current working directory. If no configuration file is present, the default values are
// returned.
func ReadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load consentsync config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consentsync config: %w", err)
	}

	return cfg, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := readVerifiedConfig()
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")

	syncCtx := &SyncContext{
		Logger: logger.MustNewLogger(cfg.Log.Format, cfg.Log.Level, cfg.Log.TimestampFormat),
		Out:    cmd.OutOrStdout(),
	}
	return syncCtx.Sync(cmd.Context(), cfg, args, all)
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, err := readVerifiedConfig()
	if err != nil {
		return err
	}

	var checkpointPath string
	if len(args) == 1 {
		checkpointPath = args[0]
	}

	syncCtx := &SyncContext{
		Logger: logger.MustNewLogger(cfg.Log.Format, cfg.Log.Level, cfg.Log.TimestampFormat),
		Out:    cmd.OutOrStdout(),
	}
	return syncCtx.Resume(cmd.Context(), cfg, checkpointPath)
}

func readVerifiedConfig() (*config.Config, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}

	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SyncContext holds what the commands share while running.
type SyncContext struct {
	Logger logger.Logger

	// Out receives one JSON line per finished run.
	Out io.Writer
}

// Sync syncs the studies with the given external ids, or every study when all is set.
// Checkpoints handed to the 'local' sink are resumed before Sync returns.
func (s *SyncContext) Sync(ctx context.Context, cfg *config.Config, externalIDs []string, all bool) error {
	ctx, stop := signal.NotifyContext(ctxOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := s.start(cfg)
	defer shutdown()

	sink, closeSink, err := s.sinkConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	sy, err := s.buildSyncer(cfg, sink)
	if err != nil {
		return err
	}

	var results []syncer.Result
	if all {
		results, err = sy.SyncAll(ctx)
		if err != nil {
			return fmt.Errorf("sync all studies: %w", err)
		}
	} else {
		for _, externalID := range externalIDs {
			result, err := sy.SyncStudy(ctx, externalID)
			result.Err = err
			results = append(results, result)
			if ctx.Err() != nil {
				break
			}
		}
	}

	if local, ok := sink.(*continuation.Local); ok && local.Len() > 0 {
		s.Logger.Info("resuming local checkpoints", zap.Int("checkpoints", local.Len()))
		resumed, err := sy.Drain(ctx, local)
		results = append(results, resumed...)
		if err != nil {
			return err
		}
	}

	return s.report(results)
}

// Resume resumes the checkpoint stored at checkpointPath. With an empty path every
// checkpoint of the configured sink is resumed.
func (s *SyncContext) Resume(ctx context.Context, cfg *config.Config, checkpointPath string) error {
	ctx, stop := signal.NotifyContext(ctxOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := s.start(cfg)
	defer shutdown()

	sink, closeSink, err := s.sinkConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	sy, err := s.buildSyncer(cfg, sink)
	if err != nil {
		return err
	}

	var results []syncer.Result
	if checkpointPath != "" {
		checkpoint, err := continuation.Load(checkpointPath)
		if err != nil {
			return err
		}

		result, err := sy.Resume(ctx, checkpoint)
		result.Err = err
		results = append(results, result)
	}

	source, ok := sink.(continuation.Source)
	_, local := sink.(*continuation.Local)
	if checkpointPath == "" && (!ok || local) {
		return fmt.Errorf("continuation sink '%s' holds no checkpoints to resume, pass a checkpoint file", cfg.Continuation.Sink)
	}

	// a checkpoint file only drains the local sink of what its own run handed off
	if ok && (checkpointPath == "" || local) {
		resumed, err := sy.Drain(ctx, source)
		results = append(results, resumed...)
		if err != nil {
			return err
		}
	}

	return s.report(results)
}

// start turns on tracing and the metrics server. The returned function shuts both down.
func (s *SyncContext) start(cfg *config.Config) func() {
	closeTracing := s.telemetryConfig(cfg)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 30 * time.Second}

		go func() {
			s.Logger.Info(fmt.Sprintf("📈 starting prometheus metrics server on '%s'", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil {
				if !errors.Is(err, http.ErrServerClosed) {
					s.Logger.Error("failed to start prometheus metrics server", zap.Error(err))
				}
			}
			s.Logger.Info("metrics server shut down.")
		}()
	}

	return func() {
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				s.Logger.Error("failed to shut down the prometheus metrics server", zap.Error(err))
			}
		}

		if err := closeTracing(); err != nil {
			s.Logger.Error("failed to shut down tracing", zap.Error(err))
		}
	}
}

// telemetryConfig returns the function that must be called to shut down tracing.
func (s *SyncContext) telemetryConfig(cfg *config.Config) func() error {
	if cfg.Trace.Enabled {
		s.Logger.Info(fmt.Sprintf("🕵 tracing enabled: sampling ratio is %v and sending traces to '%s', tls: %t", cfg.Trace.SampleRatio, cfg.Trace.OTLP.Endpoint, cfg.Trace.OTLP.TLS.Enabled))

		options := []telemetry.TracerOption{
			telemetry.WithOTLPEndpoint(cfg.Trace.OTLP.Endpoint),
			telemetry.WithServiceName(cfg.Trace.ServiceName),
			telemetry.WithSamplingRatio(cfg.Trace.SampleRatio),
		}

		if !cfg.Trace.OTLP.TLS.Enabled {
			options = append(options, telemetry.WithOTLPInsecure())
		}

		tp := telemetry.MustNewTracerProvider(options...)
		return func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
			defer cancel()
			return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
		}
	}
	otel.SetTracerProvider(noop.NewTracerProvider())
	return func() error {
		return nil
	}
}

// sinkConfig builds the continuation sink selected by 'continuation.sink'. The returned
// function releases its connections.
func (s *SyncContext) sinkConfig(ctx context.Context, cfg *config.Config) (continuation.Sink, func(), error) {
	clock := clockwork.NewRealClock()
	release := func() {}

	switch cfg.Continuation.Sink {
	case config.ContinuationSinkNone:
		return continuation.Discard(), release, nil
	case config.ContinuationSinkLocal:
		return continuation.NewLocal(clock), release, nil
	case config.ContinuationSinkFile:
		sink, err := continuation.NewFile(cfg.Continuation.Dir, clock)
		if err != nil {
			return nil, nil, err
		}
		return sink, release, nil
	case config.ContinuationSinkRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Continuation.Redis.Addr,
			Username: cfg.Continuation.Redis.Username,
			Password: cfg.Continuation.Redis.Password,
			DB:       cfg.Continuation.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Continuation.Redis.Addr, err)
		}
		closer := func() {
			if err := client.Close(); err != nil {
				s.Logger.Error("failed to close the redis client", zap.Error(err))
			}
		}
		return continuation.NewRedis(client, cfg.Continuation.Redis.Key, clock), closer, nil
	case config.ContinuationSinkS3:
		client, err := continuation.NewS3Client(ctx, continuation.S3Config{
			Bucket:    cfg.Continuation.S3.Bucket,
			Region:    cfg.Continuation.S3.Region,
			Endpoint:  cfg.Continuation.S3.Endpoint,
			Prefix:    cfg.Continuation.S3.Prefix,
			PathStyle: cfg.Continuation.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return continuation.NewS3(client, cfg.Continuation.S3.Bucket, cfg.Continuation.S3.Prefix, clock), release, nil
	default:
		return nil, nil, fmt.Errorf("unknown continuation sink '%s'", cfg.Continuation.Sink)
	}
}

func (s *SyncContext) buildSyncer(cfg *config.Config, sink continuation.Sink) (*syncer.Syncer, error) {
	store, err := dataservice.NewClient(cfg.Dataservice.URL,
		dataservice.WithLogger(s.Logger),
		dataservice.WithTimeout(cfg.Dataservice.Timeout),
		dataservice.WithRetry(cfg.Dataservice.RetryMax, cfg.Dataservice.RetryWaitMin, cfg.Dataservice.RetryWaitMax),
		dataservice.WithPageSize(cfg.Dataservice.PageSize),
	)
	if err != nil {
		return nil, err
	}

	fetcher := registry.NewClient(cfg.Registry.URL,
		registry.WithLogger(s.Logger),
		registry.WithHTTPClient(&http.Client{Timeout: cfg.Registry.Timeout}),
		registry.WithMaxAttempts(cfg.Registry.MaxAttempts),
		registry.WithBackoff(cfg.Registry.BackoffInitial, cfg.Registry.BackoffMax),
		registry.WithReleasedStatuses(cfg.Registry.ReleasedStatuses...),
	)

	return syncer.New(store, fetcher,
		syncer.WithLogger(s.Logger),
		syncer.WithStudyCacheSize(int64(cfg.Pipeline.StudyCacheSize)),
		syncer.WithMaxConcurrentStudies(cfg.Sync.MaxConcurrentStudies),
		syncer.WithControllerOptions(
			pipeline.WithLogger(s.Logger),
			pipeline.WithTimeBudget(cfg.Pipeline.TimeBudget, cfg.Pipeline.BudgetReserve),
			pipeline.WithMaxItemAttempts(cfg.Pipeline.MaxItemAttempts),
			pipeline.WithSink(sink),
		),
	), nil
}

// report writes one JSON line per run to Out and fails if any run failed.
func (s *SyncContext) report(results []syncer.Result) error {
	failed := 0
	encoder := json.NewEncoder(s.out())
	for _, result := range results {
		line := struct {
			syncer.Result
			Error string `json:"error,omitempty"`
		}{Result: result}

		if result.Err != nil {
			failed++
			line.Error = result.Err.Error()
		}

		if err := encoder.Encode(line); err != nil {
			return fmt.Errorf("write run report: %w", err)
		}
	}

	s.Logger.Info("consent sync finished", zap.Int("runs", len(results)), zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrRunFailed, failed, len(results))
	}
	return nil
}

func (s *SyncContext) out() io.Writer {
	if s.Out == nil {
		return io.Discard
	}
	return s.Out
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
