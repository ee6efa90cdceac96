package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"go-history-harvester/internal/alert"
	"go-history-harvester/internal/checkpoint"
	"go-history-harvester/internal/convert"
	"go-history-harvester/internal/model"
	"go-history-harvester/internal/schema"
	"go-history-harvester/internal/sink"
	"go-history-harvester/internal/source"
	"go-history-harvester/pkg/logger"
)

// RunRecorder persists run rows; internal/store implements it.
type RunRecorder interface {
	CreateRun(ctx context.Context, runID string, startedAt time.Time) error
	FinishRun(ctx context.Context, summary model.RunSummary) error
}

// CoordinatorConfig bounds one run.
type CoordinatorConfig struct {
	Threads         int
	GlobalTimeout   time.Duration
	Grace           time.Duration
	InitialLookback time.Duration
	// Names restricts the run to these sources; empty means all.
	Names   []string
	Harvest HarvestConfig
}

// Coordinator runs one harvester per source, forwards clean outcomes to the
// checkpoint writer and bounds the whole run by the global deadline.
type Coordinator struct {
	Connector   source.Connector
	Sink        sink.Sink
	Checkpoints checkpoint.Store
	Table       *schema.Table

	// Optional collaborators
	Runs     RunRecorder
	Notifier alert.Notifier
	Alerts   alert.AlertSaver
	Log      logger.Logger
	Now      func() time.Time

	Config CoordinatorConfig
}

type harvestResult struct {
	outcome model.HarvestOutcome
}

// Run executes a full harvest. runID may be empty. The returned error is set
// only when the run itself failed (startup or checkpoint persistence);
// per-source failures are reported in the summary.
func (c *Coordinator) Run(ctx context.Context, runID string) (model.RunSummary, error) {
	log := c.Log
	if log == nil {
		log = logger.GetDefault()
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	cfg := c.Config
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	if cfg.InitialLookback <= 0 {
		cfg.InitialLookback = 12 * time.Hour
	}
	if cfg.GlobalTimeout <= 0 {
		cfg.GlobalTimeout = 11 * time.Minute
	}

	start := now()
	deadline := start.Add(cfg.GlobalTimeout)
	hardDeadline := deadline.Add(cfg.Grace)
	summary := model.RunSummary{RunID: runID, Status: model.RunRunning, StartedAt: start}
	log.Info("🚀 Starting harvest run %s (deadline %s)", runID, deadline.Format(time.RFC3339))

	if c.Runs != nil {
		if err := c.Runs.CreateRun(ctx, runID, start); err != nil {
			log.Warn("Could not record run %s: %v", runID, err)
		}
	}

	notifier := alert.Multi{c.Notifier}
	if c.Alerts != nil {
		notifier = append(notifier, alert.StoreNotifier{Store: c.Alerts, RunID: runID})
	}
	alerts := alert.NewRunNotifier(notifier, log)

	fail := func(err error) (model.RunSummary, error) {
		summary.Status = model.RunFailed
		summary.Error = err.Error()
		summary.FinishedAt = now()
		c.finish(summary, log)
		runsTotal.WithLabelValues(summary.Status).Inc()
		return summary, err
	}

	cp, err := c.Checkpoints.LoadAll(ctx)
	if err != nil {
		return fail(fmt.Errorf("load checkpoint: %w", err))
	}
	listed, err := c.Connector.ListSources(ctx)
	if err != nil {
		return fail(fmt.Errorf("list sources: %w", err))
	}
	sources := source.Select(listed, cfg.Names, false)
	summary.Sources = len(sources)
	log.Info("There are %d sources to query", len(sources))

	tracker := NewRunTracker(runID, sources, log)
	conv := convert.New(c.Table, start.Unix(), convert.WithLogger(log))
	writer := checkpoint.NewWriter(c.Checkpoints, len(sources), log)

	// Cancelled only once the hard deadline has been handled below.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so late harvesters never block after abandonment
	results := make(chan harvestResult, len(sources))
	// pending is owned by the wait loop; the dispatcher only reads starts.
	pending := make(map[string]model.HarvestOutcome, len(sources))
	starts := make(map[string]int64, len(sources))
	for _, src := range sources {
		since, ok := cp[src.Name]
		if !ok {
			since = start.Add(-cfg.InitialLookback).Unix()
		}
		starts[src.Name] = since
		pending[src.Name] = model.HarvestOutcome{Source: src.Name, StartWatermark: since, FinalWatermark: since}
	}

	sem := semaphore.NewWeighted(int64(cfg.Threads))
	go func() {
		for _, src := range sources {
			if err := sem.Acquire(runCtx, 1); err != nil {
				return
			}
			h := NewHarvester(src, starts[src.Name], deadline, cfg.Harvest, HarvesterDeps{
				Connector: c.Connector,
				Sink:      c.Sink,
				Converter: conv,
				Alerts:    alerts,
				Tracker:   tracker,
				Log:       log,
				Now:       now,
			})
			go func() {
				defer sem.Release(1)
				results <- harvestResult{outcome: h.Run(runCtx)}
			}()
		}
	}()

	var outcomes []model.HarvestOutcome
	var writeErr error
	timer := time.NewTimer(hardDeadline.Sub(now()))
	defer timer.Stop()

wait:
	for len(pending) > 0 {
		select {
		case r := <-results:
			o := r.outcome
			if _, ok := pending[o.Source]; !ok {
				continue
			}
			delete(pending, o.Source)
			outcomes = append(outcomes, o)
			if !o.CompletedWithoutTimeout {
				continue
			}
			if err := writer.Submit(ctx, o.Source, o.FinalWatermark); err != nil && writeErr == nil {
				writeErr = err
			}
		case <-timer.C:
			break wait
		}
	}

	// Anything still pending is abandoned: no checkpoint, late outcomes dropped.
	for name, o := range pending {
		msg := fmt.Sprintf("Source %s history timed out; ignoring progress.", name)
		log.Error("%s", msg)
		tracker.RecordError(name, errAbandoned, msg)
		alerts.Send(ctx, alert.SubjectTimeout, name, msg)
		o.State = model.StateAbandoned
		o.Err = ErrDeadlineExceeded
		o.Error = ErrDeadlineExceeded.Error()
		tracker.RecordOutcome(o)
		outcomesTotal.WithLabelValues(string(o.State)).Inc()
		outcomes = append(outcomes, o)
	}
	cancel()

	if err := writer.Stop(); err != nil && writeErr == nil {
		writeErr = err
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Source < outcomes[j].Source })
	summary.Outcomes = outcomes
	for _, o := range outcomes {
		summary.Records += o.RecordCount
		switch {
		case o.CompletedWithoutTimeout:
			summary.Completed++
		case o.State == model.StateAbandoned:
			summary.Abandoned++
		default:
			summary.Failed++
		}
	}
	summary.FinishedAt = now()

	if writeErr != nil {
		msg := fmt.Sprintf("Failed to persist checkpoint: %v", writeErr)
		tracker.RecordError("", errCheckpoint, msg)
		alerts.Send(ctx, alert.SubjectCheckpointError, "", msg)
		tracker.Complete(model.RunFailed)
		return fail(fmt.Errorf("checkpoint: %w", writeErr))
	}

	summary.Status = model.RunCompleted
	tracker.Complete(summary.Status)
	c.finish(summary, log)
	runsTotal.WithLabelValues(summary.Status).Inc()
	runDurationSeconds.Observe(summary.FinishedAt.Sub(start).Seconds())
	log.Info("🏁 Processing time for history: %.2f mins", summary.FinishedAt.Sub(start).Minutes())
	return summary, nil
}

func (c *Coordinator) finish(summary model.RunSummary, log logger.Logger) {
	if c.Runs == nil {
		return
	}
	// the run context may already be cancelled
	if err := c.Runs.FinishRun(context.Background(), summary); err != nil {
		log.Warn("Could not record result of run %s: %v", summary.RunID, err)
	}
}
