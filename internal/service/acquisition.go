package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/aequasi/expensify-to-excel/internal/infra/observability"
	"github.com/aequasi/expensify-to-excel/internal/infra/resilience"
	"github.com/aequasi/expensify-to-excel/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

const descriptorCache = "descriptor"

// AcquisitionOptions bounds one batch of receipt tasks.
type AcquisitionOptions struct {
	// RowConcurrency caps the tasks of one batch running at once.
	RowConcurrency int
	// BatchTimeout bounds the whole batch; zero means no bound beyond the caller's context.
	BatchTimeout time.Duration
}

// Acquisition resolves and fetches the receipts of a batch of expense records.
// A task never fails its siblings: every link-bearing record ends in exactly
// one outcome, Skipped when anything goes wrong.
type Acquisition struct {
	resolver port.ReceiptResolver
	fetcher  port.ReceiptFetcher
	cache    port.Cache[*domain.TransactionDescriptor]
	bulkhead *resilience.Bulkhead
	opts     AcquisitionOptions
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAcquisition creates the coordinator with all dependencies injected.
// The bulkhead is shared process-wide; the cache may be nil.
func NewAcquisition(
	resolver port.ReceiptResolver,
	fetcher port.ReceiptFetcher,
	cache port.Cache[*domain.TransactionDescriptor],
	bulkhead *resilience.Bulkhead,
	opts AcquisitionOptions,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Acquisition {
	if opts.RowConcurrency <= 0 {
		opts.RowConcurrency = 1
	}
	return &Acquisition{
		resolver: resolver,
		fetcher:  fetcher,
		cache:    cache,
		bulkhead: bulkhead,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// AcquireAll starts one task per record carrying a receipt link and returns
// a channel yielding each terminal outcome. The channel is closed once every
// task has finished, which is the completion signal of the batch. Records
// without a link produce nothing. Outcomes arrive in completion order.
func (a *Acquisition) AcquireAll(ctx context.Context, records []domain.ExpenseRecord) <-chan domain.ReceiptOutcome {
	out := make(chan domain.ReceiptOutcome, a.opts.RowConcurrency)

	go func() {
		defer close(out)

		ctx, span := tracer.Start(ctx, "Acquisition.AcquireAll")
		defer span.End()

		if a.opts.BatchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.opts.BatchTimeout)
			defer cancel()
		}

		var g errgroup.Group
		g.SetLimit(a.opts.RowConcurrency)

		tasks := 0
		for _, rec := range records {
			if !rec.HasReceipt() {
				continue
			}
			tasks++
			link := rec.ReceiptLink
			g.Go(func() error {
				out <- a.acquireBounded(ctx, link)
				return nil
			})
		}
		_ = g.Wait()

		span.SetAttributes(attribute.Int("receipt.tasks", tasks))
	}()

	return out
}

// acquireBounded returns the task outcome, or a timeout skip as soon as ctx
// is done even when the task itself ignores cancellation.
func (a *Acquisition) acquireBounded(ctx context.Context, link string) (outcome domain.ReceiptOutcome) {
	start := time.Now()
	defer func() {
		a.record(outcome, time.Since(start))
	}()

	done := make(chan domain.ReceiptOutcome, 1)
	go func() {
		done <- a.acquire(ctx, link)
	}()

	select {
	case outcome = <-done:
		return outcome
	case <-ctx.Done():
		return domain.Skipped(link, a.reason(ctx, ctx.Err()))
	}
}

// acquire runs one task to a terminal outcome.
func (a *Acquisition) acquire(ctx context.Context, link string) (outcome domain.ReceiptOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Skipped(link, fmt.Errorf("receipt task panicked: %v", r))
		}
	}()

	if a.bulkhead != nil {
		if err := a.bulkhead.Acquire(ctx); err != nil {
			return domain.Skipped(link, a.reason(ctx, err))
		}
		defer a.bulkhead.Release()
	}

	desc, err := a.resolve(ctx, link)
	if err != nil {
		a.metrics.IncrExternalError(externalService(err, "receipt-pages"))
		return domain.Skipped(link, a.reason(ctx, err))
	}

	outcome, err = a.fetcher.Fetch(ctx, desc, link)
	if err != nil {
		a.metrics.IncrExternalError(externalService(err, "receipt-storage"))
		return domain.Skipped(link, a.reason(ctx, err))
	}
	return outcome
}

func (a *Acquisition) resolve(ctx context.Context, link string) (*domain.TransactionDescriptor, error) {
	if a.cache != nil {
		if desc, ok := a.cache.Get(link); ok {
			a.metrics.IncrCacheHit(descriptorCache)
			return desc, nil
		}
		a.metrics.IncrCacheMiss(descriptorCache)
	}

	desc, err := a.resolver.Resolve(ctx, link)
	if err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, &domain.ErrResolution{Link: link, Reason: "empty descriptor"}
	}
	if a.cache != nil {
		a.cache.Set(link, desc)
	}
	return desc, nil
}

// externalService names the host behind err, or fallback when err carries none.
func externalService(err error, fallback string) string {
	var ext *domain.ErrExternalService
	if errors.As(err, &ext) && ext.Service != "" {
		return ext.Service
	}
	return fallback
}

// reason labels a failure caused by the batch deadline as a timeout.
func (a *Acquisition) reason(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", &domain.ErrTimeout{Operation: "receipt acquisition"}, err)
	}
	return err
}

func (a *Acquisition) record(o domain.ReceiptOutcome, d time.Duration) {
	a.metrics.IncrReceiptOutcome(o.Kind)
	a.metrics.RecordRequestDuration("receipt", d)

	if o.Kind == domain.OutcomeSkipped {
		a.logger.Warn("receipt skipped",
			zap.String("link", o.Link),
			zap.Error(o.Reason),
		)
		return
	}
	a.logger.Debug("receipt acquired",
		zap.String("link", o.Link),
		zap.String("kind", o.Kind.String()),
		zap.String("file", o.FileName),
		zap.Duration("latency", d),
	)
}
