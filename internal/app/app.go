// Package app assembles a harvester from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go-history-harvester/internal/alert"
	"go-history-harvester/internal/api/handler"
	"go-history-harvester/internal/checkpoint"
	"go-history-harvester/internal/config"
	"go-history-harvester/internal/model"
	"go-history-harvester/internal/pipeline"
	"go-history-harvester/internal/schema"
	"go-history-harvester/internal/sink"
	"go-history-harvester/internal/source"
	"go-history-harvester/internal/store"
	"go-history-harvester/pkg/httpclient"
	"go-history-harvester/pkg/logger"
	"go-history-harvester/pkg/utils"
)

// App owns every long-lived resource of a harvester process.
type App struct {
	cfg  *config.Config
	log  logger.Logger
	db   *store.DB
	cp   checkpoint.Store
	base pipeline.Coordinator

	ctx     context.Context
	cancel  context.CancelFunc
	closers []io.Closer
	running atomic.Bool
	wg      sync.WaitGroup
}

// New opens the run database, the checkpoint store, the connector and the
// sink described by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg
	if err := a.initLogger(); err != nil {
		return err
	}

	var err error
	a.db, err = store.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open run database: %w", err)
	}
	a.closers = append(a.closers, a.db)

	switch cfg.CheckpointBackend {
	case "sqlite":
		a.cp, err = checkpoint.NewSQLiteStore(ctx, a.db.Handle())
	default:
		a.cp, err = checkpoint.NewFileStore(cfg.CheckpointFile)
	}
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}

	conn, err := a.newConnector()
	if err != nil {
		return err
	}
	out, err := a.newSink(ctx)
	if err != nil {
		return err
	}
	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}

	table := schema.Default()
	a.base = pipeline.Coordinator{
		Connector:   conn,
		Sink:        out,
		Checkpoints: a.cp,
		Table:       table,
		Runs:        a.db,
		Notifier:    notifier,
		Alerts:      a.db,
		Log:         a.log,
		Config: pipeline.CoordinatorConfig{
			Threads:         cfg.Threads,
			GlobalTimeout:   cfg.GlobalTimeout,
			Grace:           cfg.Grace,
			InitialLookback: cfg.InitialLookback,
			Harvest: pipeline.HarvestConfig{
				BatchSize:     cfg.BatchSize,
				MaxDocuments:  cfg.MaxDocuments,
				SourceTimeout: cfg.SourceTimeout,
				ReadOnly:      cfg.ReadOnly,
				DryRun:        cfg.DryRun,
				Partitioner:   pipeline.NewPartitioner(cfg.IndexTemplate),
			},
		},
	}
	a.log.Info("✅ Harvester ready: source=%s sink=%s checkpoint=%s threads=%d",
		cfg.Source.Type, cfg.Sink.Type, cfg.CheckpointBackend, cfg.Threads)
	return nil
}

func (a *App) initLogger() error {
	level, err := logger.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	if a.cfg.LogFile == "" {
		a.log = logger.NewLogger(level, os.Stderr)
	} else {
		log, closer, err := logger.NewFileLogger(level, a.cfg.LogFile, false)
		if err != nil {
			return err
		}
		a.log = log
		a.closers = append(a.closers, closer)
	}
	logger.SetDefault(a.log)
	return nil
}

func (a *App) newConnector() (source.Connector, error) {
	src := a.cfg.Source
	switch src.Type {
	case "http":
		client := httpclient.New(&httpclient.Config{
			BaseURL:   src.URL,
			Username:  src.Username,
			Password:  src.Password,
			RateLimit: src.RateLimit,
		})
		return source.NewHTTPConnector(client, src.Names, src.Shuffle), nil
	default:
		return source.NewFileConnector(src.Dir, src.Names, src.Shuffle)
	}
}

func (a *App) newSink(ctx context.Context) (sink.Sink, error) {
	cfg := a.cfg
	if cfg.ReadOnly {
		a.log.Info("Read-only mode: documents will not be sent")
		return sink.NopSink{}, nil
	}

	var out sink.Sink
	switch cfg.Sink.Type {
	case "elastic":
		es := cfg.Sink.Elastic
		client := httpclient.New(&httpclient.Config{
			BaseURL:  cfg.ElasticURL(),
			Username: es.Username,
			Password: es.Password,
			Timeout:  es.Timeout,
		})
		out = sink.NewElasticSink(client, sink.ElasticConfig{
			Table:    schema.Default(),
			Metadata: sink.CollectMetadata(time.Now()),
			Output:   utils.NewOutputManager(cfg.MappingsDir),
			Log:      a.log,
		})
	case "sql":
		db, err := sink.OpenSQL(cfg.Sink.SQL.Dialect, cfg.Sink.SQL.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		if out, err = sink.NewSQLSink(ctx, db, cfg.Sink.SQL.Dialect); err != nil {
			return nil, err
		}
	case "minio":
		client, err := sink.NewS3Client(cfg.Sink.MinIO)
		if err != nil {
			return nil, err
		}
		if out, err = sink.NewObjectSink(ctx, client, cfg.Sink.MinIO.Bucket, cfg.Sink.MinIO.Prefix); err != nil {
			return nil, err
		}
	case "file":
		var err error
		if out, err = sink.NewFileSink(utils.NewOutputManager(cfg.Sink.File.Dir)); err != nil {
			return nil, err
		}
	default:
		return sink.NopSink{}, nil
	}
	return sink.NewRetryingSink(out, cfg.Sink.Retry, a.log), nil
}

func (a *App) newNotifier() (alert.Notifier, error) {
	notifiers := alert.Multi{alert.LogNotifier{Log: a.log}}
	if len(a.cfg.EmailAlerts) > 0 {
		smtpCfg := a.cfg.SMTP
		smtpCfg.To = append(append([]string(nil), smtpCfg.To...), a.cfg.EmailAlerts...)
		email, err := alert.NewEmailNotifier(smtpCfg)
		if err != nil {
			return nil, fmt.Errorf("email alerts: %w", err)
		}
		notifiers = append(notifiers, email)
	}
	return notifiers, nil
}

// Logger returns the process logger.
func (a *App) Logger() logger.Logger { return a.log }

// RunOnce executes one harvest in the foreground.
func (a *App) RunOnce(ctx context.Context, req model.TriggerRequest) (model.RunSummary, error) {
	if !a.running.CompareAndSwap(false, true) {
		return model.RunSummary{}, handler.ErrRunInProgress
	}
	defer a.running.Store(false)
	return a.run(ctx, uuid.NewString(), req)
}

// Trigger starts a harvest in the background; see handler.Trigger.
func (a *App) Trigger(req model.TriggerRequest) (string, error) {
	if !a.running.CompareAndSwap(false, true) {
		return "", handler.ErrRunInProgress
	}
	runID := uuid.NewString()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.running.Store(false)
		if _, err := a.run(a.ctx, runID, req); err != nil {
			a.log.Error("❌ Run %s failed: %v", runID, err)
		}
	}()
	return runID, nil
}

func (a *App) run(ctx context.Context, runID string, req model.TriggerRequest) (model.RunSummary, error) {
	c := a.base
	c.Config.Names = req.Sources
	if req.ReadOnly || req.DryRun {
		c.Config.Harvest.ReadOnly = true
	}
	if req.DryRun {
		c.Config.Harvest.DryRun = true
	}
	if req.MaxDocuments > 0 {
		c.Config.Harvest.MaxDocuments = req.MaxDocuments
	}
	return c.Run(ctx, runID)
}

// Handler builds the status API handler.
func (a *App) Handler() *handler.Handler {
	return &handler.Handler{Runs: a.db, Checkpoints: a.cp, Trigger: a, Log: a.log}
}

// Close cancels background runs, waits for them and releases resources.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
