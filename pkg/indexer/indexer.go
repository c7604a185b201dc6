// Package indexer drains search indexing payloads published on the message
// bus by other management nodes and feeds them to the local search sink.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/apimgmt/pkg/logger"
	"github.com/dmitrymomot/apimgmt/pkg/message"
	"github.com/dmitrymomot/apimgmt/pkg/scheduler"
	"github.com/dmitrymomot/apimgmt/pkg/search"
)

// JobName is the name the indexer registers under.
const JobName = "search-indexer"

// Messages is the part of message.Service the indexer uses.
type Messages interface {
	Search(ctx context.Context, q message.Query) ([]message.Entity, error)
	Ack(ctx context.Context, messageID string)
}

// Registrar accepts scheduled jobs. *scheduler.Scheduler implements it.
type Registrar interface {
	Add(name string, schedule scheduler.Schedule, job scheduler.Job) error
}

// Indexer periodically drains DATA_TO_INDEX messages addressed to the
// management nodes.
type Indexer struct {
	messages Messages
	sink     search.Sink
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	state    atomic.Int32
	runs     atomic.Int64
}

type Option func(*Indexer)

func WithLogger(l *slog.Logger) Option {
	return func(i *Indexer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithMetrics records drain statistics in m.
func WithMetrics(m *Metrics) Option {
	return func(i *Indexer) {
		i.metrics = m
	}
}

// New creates an indexer. It stays Disabled until Start registers it.
func New(messages Messages, sink search.Sink, cfg Config, opts ...Option) *Indexer {
	i := &Indexer{
		messages: messages,
		sink:     sink,
		cfg:      cfg,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With(logger.Component("indexer"), logger.Job(JobName))
	i.state.Store(int32(StateDisabled))
	return i
}

// State returns the current lifecycle state.
func (i *Indexer) State() State {
	return State(i.state.Load())
}

// Runs returns how many drains have been started.
func (i *Indexer) Runs() int64 {
	return i.runs.Load()
}

// Start registers the job with r unless the indexer is disabled.
func (i *Indexer) Start(ctx context.Context, r Registrar) error {
	if !i.cfg.Enabled {
		i.logger.WarnContext(ctx, "search indexer is disabled")
		return nil
	}

	schedule, err := scheduler.Cron(i.cfg.Cron)
	if err != nil {
		return errors.Join(ErrInvalidCron, err)
	}

	if err := r.Add(JobName, schedule, func(ctx context.Context) error {
		i.Run(ctx)
		return nil
	}); err != nil {
		return fmt.Errorf("register %s: %w", JobName, err)
	}

	i.state.Store(int32(StateIdle))
	i.logger.InfoContext(ctx, "search indexer scheduled", slog.String("cron", i.cfg.Cron))
	return nil
}

// Run performs one drain. It returns immediately when the indexer is
// disabled or another drain is in progress.
func (i *Indexer) Run(ctx context.Context) {
	if !i.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		i.logger.DebugContext(ctx, "search indexer not idle, skipping", slog.String("state", i.State().String()))
		return
	}
	defer i.state.Store(int32(StateIdle))

	run := i.runs.Add(1)
	log := i.logger.With(logger.RunID(run))
	log.DebugContext(ctx, "search indexer run started")
	start := time.Now()
	i.metrics.runStarted()
	defer func() { i.metrics.observe(time.Since(start)) }()

	entities, err := i.messages.Search(ctx, message.Query{
		To:   message.RecipientManagementAPIs.String(),
		Tags: []message.Tag{message.TagDataToIndex},
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to search messages to index", logger.Error(err))
		return
	}

	var failed int
	for _, e := range entities {
		// Every drained message is acked, whether or not it indexes.
		i.messages.Ack(ctx, e.ID)

		if err := i.ingest(ctx, e); err != nil {
			failed++
			log.ErrorContext(ctx, "failed to index message", logger.MessageID(e.ID), logger.Error(err))
		}
	}

	i.metrics.processed(len(entities)-failed, failed)
	log.DebugContext(ctx, "search indexer run finished",
		logger.Count(len(entities)),
		slog.Int("failed", failed),
		logger.Duration(time.Since(start)),
	)
}

func (i *Indexer) ingest(ctx context.Context, e message.Entity) error {
	payload, err := search.DecodePayload([]byte(e.Content))
	if err != nil {
		return errors.Join(message.ErrMappingFailure, err)
	}
	return i.sink.Ingest(ctx, payload)
}
