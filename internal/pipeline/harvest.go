package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-history-harvester/internal/alert"
	"go-history-harvester/internal/classad"
	"go-history-harvester/internal/convert"
	"go-history-harvester/internal/model"
	"go-history-harvester/internal/sink"
	"go-history-harvester/internal/source"
	"go-history-harvester/pkg/logger"
)

// ErrDeadlineExceeded marks a harvest stopped by the run deadline.
var ErrDeadlineExceeded = errors.New("harvest deadline exceeded")

// progressEvery controls how often a harvester logs its record counter.
const progressEvery = 1000

// HarvestConfig holds the per-source limits shared by all harvesters of a run.
type HarvestConfig struct {
	BatchSize     int
	MaxDocuments  int           // 0 = unlimited
	SourceTimeout time.Duration // 0 = global deadline only
	ReadOnly      bool
	DryRun        bool
	Partitioner   Partitioner
}

var transitions = map[model.HarvestState][]model.HarvestState{
	model.StateInit:   {model.StateQuery, model.StateTimeout},
	model.StateQuery:  {model.StateStream, model.StateConnectorError},
	model.StateStream: {model.StateTimeout, model.StateConnectorError, model.StateSinkError, model.StateDone},
}

func canTransition(from, to model.HarvestState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Harvester pulls the history of one source since a watermark and delivers
// it to the sink. It owns its batches, watermark and counters.
type Harvester struct {
	src      model.SourceDescriptor
	since    int64
	deadline time.Time

	conn    source.Connector
	sink    sink.Sink
	conv    *convert.Converter
	alerts  *alert.RunNotifier
	tracker *RunTracker
	cfg     HarvestConfig
	log     logger.Logger
	now     func() time.Time

	state   model.HarvestState
	outcome model.HarvestOutcome
	batches *Batcher
}

// HarvesterDeps bundles the collaborators of a Harvester.
type HarvesterDeps struct {
	Connector source.Connector
	Sink      sink.Sink
	Converter *convert.Converter
	Alerts    *alert.RunNotifier
	Tracker   *RunTracker
	Log       logger.Logger
	Now       func() time.Time
}

// NewHarvester prepares a harvest of src starting at since that must stop
// consuming at deadline.
func NewHarvester(src model.SourceDescriptor, since int64, deadline time.Time, cfg HarvestConfig, deps HarvesterDeps) *Harvester {
	if deps.Log == nil {
		deps.Log = logger.GetDefault()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Alerts == nil {
		deps.Alerts = alert.NewRunNotifier(nil, deps.Log)
	}
	if deps.Tracker == nil {
		deps.Tracker = NewRunTracker("", nil, deps.Log)
	}
	if deps.Sink == nil {
		deps.Sink = sink.NopSink{}
	}
	return &Harvester{
		src:      src,
		since:    since,
		deadline: deadline,
		conn:     deps.Connector,
		sink:     deps.Sink,
		conv:     deps.Converter,
		alerts:   deps.Alerts,
		tracker:  deps.Tracker,
		cfg:      cfg,
		log:      deps.Log,
		now:      deps.Now,
		state:    model.StateInit,
		batches:  NewBatcher(cfg.BatchSize),
	}
}

// State returns the current state.
func (h *Harvester) State() model.HarvestState { return h.state }

func (h *Harvester) transition(to model.HarvestState) {
	if !canTransition(h.state, to) {
		panic(fmt.Sprintf("harvester %s: invalid transition %s -> %s", h.src.Name, h.state, to))
	}
	h.state = to
}

// Run harvests the source. It never returns an error; the outcome carries
// the final state and only DONE outcomes are complete.
func (h *Harvester) Run(ctx context.Context) model.HarvestOutcome {
	start := h.now()
	h.outcome = model.HarvestOutcome{
		Source:         h.src.Name,
		StartWatermark: h.since,
		FinalWatermark: h.since,
	}
	activeHarvesters.Inc()
	defer activeHarvesters.Dec()

	deadline := h.deadline
	if h.cfg.SourceTimeout > 0 && start.Add(h.cfg.SourceTimeout).Before(deadline) {
		deadline = start.Add(h.cfg.SourceTimeout)
	}

	if !start.Before(deadline) {
		msg := fmt.Sprintf("No time remaining to process %s history; exiting.", h.src.Name)
		h.log.Error("%s", msg)
		h.raise(ctx, alert.SubjectTimeout, errTimeout, msg)
		h.transition(model.StateTimeout)
		return h.finish(start, ErrDeadlineExceeded)
	}

	h.transition(model.StateQuery)
	h.log.Info("🔍 Querying %s for history since %d (%.1f minutes of ads)",
		h.src.Name, h.since, start.Sub(time.Unix(h.since, 0)).Minutes())

	it, err := h.query(ctx)
	if err != nil {
		msg := fmt.Sprintf("Failed to query %s history: %v", h.src.Name, err)
		h.log.Error("❌ %s", msg)
		h.raise(ctx, alert.SubjectQueryError, errQuery, msg)
		h.transition(model.StateConnectorError)
		return h.finish(start, err)
	}
	defer it.Close()
	h.transition(model.StateStream)

	watermark := h.since
	timedOut := false
	capped := false
	for it.Next(ctx) {
		rec := it.Record()
		accepted, err := h.accept(ctx, rec)
		if err != nil {
			h.outcome.FinalWatermark = watermark
			return h.sinkFailure(ctx, start, err)
		}
		if t, ok := classad.Int64(rec, "EnteredCurrentStatus"); accepted && ok && t > watermark {
			watermark = t
		}

		if h.outcome.RecordCount%progressEvery == 0 && h.outcome.RecordCount > 0 {
			h.log.Debug("📥 %s: %d records processed", h.src.Name, h.outcome.RecordCount)
		}

		if !h.now().Before(deadline) {
			msg := fmt.Sprintf("History harvest of %s has been running for more than %v; exiting.",
				h.src.Name, deadline.Sub(start).Round(time.Second))
			h.log.Error("%s", msg)
			h.raise(ctx, alert.SubjectTimeout, errTimeout, msg)
			timedOut = true
			break
		}
		if h.cfg.MaxDocuments > 0 && h.outcome.RecordCount >= h.cfg.MaxDocuments {
			h.log.Warn("Aborting %s after %d documents (max_documents)", h.src.Name, h.outcome.RecordCount)
			capped = true
			break
		}
	}
	h.outcome.FinalWatermark = watermark

	var streamErr error
	if !timedOut && !capped {
		streamErr = it.Err()
	}
	if err := h.flushAll(ctx); err != nil {
		return h.sinkFailure(ctx, start, err)
	}

	switch {
	case streamErr != nil && ctx.Err() != nil:
		// cancelled by the coordinator at the hard deadline
		h.transition(model.StateTimeout)
		return h.finish(start, ErrDeadlineExceeded)
	case streamErr != nil:
		msg := fmt.Sprintf("Error while reading %s history: %v", h.src.Name, streamErr)
		h.log.Error("❌ %s", msg)
		h.raise(ctx, alert.SubjectQueryError, errStream, msg)
		h.transition(model.StateConnectorError)
		return h.finish(start, streamErr)
	case timedOut:
		h.transition(model.StateTimeout)
		return h.finish(start, ErrDeadlineExceeded)
	}

	h.transition(model.StateDone)
	h.outcome.CompletedWithoutTimeout = true
	return h.finish(start, nil)
}

func (h *Harvester) query(ctx context.Context) (source.Iterator, error) {
	if h.cfg.DryRun {
		return emptyIterator{}, nil
	}
	filter, err := classad.SinceFilter(h.since)
	if err != nil {
		return nil, &source.QueryError{Source: h.src.Name, Err: err}
	}
	return h.conn.Query(ctx, h.src, source.Query{Since: h.since, Limit: h.cfg.MaxDocuments, Filter: filter})
}

// accept converts one record and buffers it. Skipped and unconvertible
// records are not accepted; only sink failures are returned.
func (h *Harvester) accept(ctx context.Context, rec classad.Record) (bool, error) {
	id, doc, err := h.conv.Convert(rec)
	if errors.Is(err, convert.ErrSkipRecord) {
		return false, nil
	}
	if err != nil {
		h.outcome.ConversionErrors++
		conversionErrorsTotal.WithLabelValues(h.src.Name).Inc()
		msg := fmt.Sprintf("Failure when converting document on %s history: %v", h.src.Name, err)
		h.log.Warn("%s", msg)
		h.raise(ctx, alert.SubjectConversionError, errConversion, msg)
		return false, nil
	}

	h.outcome.RecordCount++
	recordsHarvestedTotal.WithLabelValues(h.src.Name).Inc()
	partition := h.cfg.Partitioner.Partition(doc)
	if full, ok := h.batches.Add(partition, model.IndexedDocument{ID: id, Doc: doc}); ok {
		return true, h.flush(ctx, partition, full)
	}
	return true, nil
}

func (h *Harvester) flushAll(ctx context.Context) error {
	for _, b := range h.batches.Drain() {
		if err := h.flush(ctx, b.Partition, b.Docs); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harvester) flush(ctx context.Context, partition string, docs []model.IndexedDocument) error {
	if h.cfg.ReadOnly {
		h.log.Debug("Read-only: skipping %d documents for %s", len(docs), partition)
		return nil
	}

	st := h.now()
	err := h.sink.Write(ctx, partition, docs)
	elapsed := h.now().Sub(st)
	h.outcome.UploadDuration += elapsed

	res := model.FlushResult{
		Source:    h.src.Name,
		Partition: partition,
		Count:     len(docs),
		Success:   err == nil,
		Duration:  elapsed,
		Timestamp: st,
	}
	batchSizeHistogram.Observe(float64(len(docs)))
	if err != nil {
		res.Error = err.Error()
		flushFailuresTotal.WithLabelValues(h.src.Name).Inc()
	} else {
		h.outcome.DocumentsSent += len(docs)
		documentsFlushedTotal.WithLabelValues(h.src.Name).Add(float64(len(docs)))
	}
	h.tracker.RecordFlush(res)
	return err
}

func (h *Harvester) sinkFailure(ctx context.Context, start time.Time, err error) model.HarvestOutcome {
	if ctx.Err() != nil {
		// the write was cut short by the coordinator at the hard deadline
		h.log.Warn("Upload of %s interrupted by the run deadline: %v", h.src.Name, err)
		h.transition(model.StateTimeout)
		return h.finish(start, ErrDeadlineExceeded)
	}
	msg := fmt.Sprintf("Transport error while sending history data of %s; ignoring progress. %v", h.src.Name, err)
	h.log.Error("❌ %s", msg)
	h.raise(ctx, alert.SubjectTransportError, errSink, msg)
	h.transition(model.StateSinkError)
	return h.finish(start, err)
}

func (h *Harvester) raise(ctx context.Context, subject, errorType, msg string) {
	h.tracker.RecordError(h.src.Name, errorType, msg)
	h.alerts.Send(ctx, subject, h.src.Name, msg)
}

func (h *Harvester) finish(start time.Time, err error) model.HarvestOutcome {
	o := h.outcome
	o.State = h.state
	o.Err = err
	if err != nil {
		o.Error = err.Error()
	}
	o.Duration = h.now().Sub(start)
	o.QueryDuration = o.Duration - o.UploadDuration

	h.log.Info("✅ %s: %d records, final watermark %d, state %s, query %.2fs, upload %.2fs",
		o.Source, o.RecordCount, o.FinalWatermark, o.State, o.QueryDuration.Seconds(), o.UploadDuration.Seconds())
	outcomesTotal.WithLabelValues(string(o.State)).Inc()
	harvestDurationSeconds.WithLabelValues(string(o.State)).Observe(o.Duration.Seconds())
	h.tracker.RecordOutcome(o)
	return o
}

type emptyIterator struct{}

func (emptyIterator) Next(context.Context) bool { return false }
func (emptyIterator) Record() classad.Record    { return nil }
func (emptyIterator) Err() error                { return nil }
func (emptyIterator) Close() error              { return nil }
