// Package reports implements the scheduled report dispatcher: resolve due
// schedules, expand recipients, send summaries, advance schedules. One
// report's failure never aborts the batch.
package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/reviewflow/internal/email"
	"github.com/dropDatabas3/reviewflow/internal/metrics"
	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
	"github.com/dropDatabas3/reviewflow/internal/store"
)

// Deps contains the dispatcher's dependencies.
type Deps struct {
	Reports store.ReportStore
	Members store.MemberDirectory
	Sender  email.Sender

	// Concurrency bounds parallel report processing. Reports are
	// independent; there is no ordering guarantee between tenants.
	// Defaults to 4. Use 1 for strictly sequential dispatch.
	Concurrency int

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// Dispatcher runs dispatch cycles.
type Dispatcher struct {
	reports     store.ReportStore
	members     store.MemberDirectory
	sender      email.Sender
	concurrency int
	now         func() time.Time
}

// New creates a Dispatcher.
func New(d Deps) *Dispatcher {
	c := d.Concurrency
	if c <= 0 {
		c = 4
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		reports:     d.Reports,
		members:     d.Members,
		sender:      d.Sender,
		concurrency: c,
		now:         now,
	}
}

// Outcome summarizes one dispatch cycle.
type Outcome struct {
	Due       int
	Succeeded int
	Failed    int
	Skipped   int // zero recipients
}

// RunCycle processes every due schedule once. Each report's outcome is
// recorded independently and its next_run_at advanced regardless of the
// result.
func (d *Dispatcher) RunCycle(ctx context.Context) (Outcome, error) {
	log := logger.From(ctx).With(logger.Component("reports.dispatch"))
	now := d.now().UTC()

	due, err := d.reports.DueSchedules(ctx, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("load due schedules: %w", err)
	}
	if len(due) == 0 {
		log.Debug("no due reports")
		return Outcome{}, nil
	}
	log.Info("dispatch cycle started", logger.Count(len(due)))

	results := make([]dispatchResult, len(due))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, sch := range due {
		i, sch := i, sch
		g.Go(func() error {
			results[i] = d.dispatchOne(gctx, sch, now)
			return nil
		})
	}
	// Workers never return errors; per-report failures land in results.
	_ = g.Wait()

	var out Outcome
	out.Due = len(due)
	for _, r := range results {
		switch {
		case r.skipped:
			out.Skipped++
		case r.failed:
			out.Failed++
		default:
			out.Succeeded++
		}
	}
	log.Info("dispatch cycle finished",
		logger.Int("succeeded", out.Succeeded),
		logger.Int("failed", out.Failed),
		logger.Int("skipped", out.Skipped),
	)
	return out, nil
}

type dispatchResult struct {
	failed  bool
	skipped bool
}

// dispatchOne processes a single schedule atomically with respect to its
// own state: resolve, attempt, record outcome. It never propagates errors
// upward.
func (d *Dispatcher) dispatchOne(ctx context.Context, sch store.ReportSchedule, now time.Time) dispatchResult {
	log := logger.From(ctx).With(
		logger.Component("reports.dispatch"),
		logger.ReportID(sch.ID),
		logger.TenantID(sch.TenantID),
	)

	recipients, err := resolveRecipients(ctx, d.members, sch)
	if err != nil {
		log.Warn("recipient resolution failed", logger.Err(err))
		d.record(ctx, sch, store.RunFailure, now)
		metrics.ReportDispatches.WithLabelValues("failure").Inc()
		return dispatchResult{failed: true}
	}

	// Zero recipients is not an error: skip this cycle, still advance.
	if len(recipients) == 0 {
		log.Debug("no recipients, skipping")
		d.record(ctx, sch, store.RunSkipped, now)
		metrics.ReportDispatches.WithLabelValues("skipped").Inc()
		return dispatchResult{skipped: true}
	}

	subject, htmlBody, textBody := renderSummary(sch, now)
	var sendErr error
	for _, to := range recipients {
		if err := d.sender.Send(to, subject, htmlBody, textBody); err != nil {
			sendErr = err
			log.Warn("delivery failed", logger.String("to", to), logger.Err(err))
		}
	}

	if sendErr != nil {
		d.record(ctx, sch, store.RunFailure, now)
		metrics.ReportDispatches.WithLabelValues("failure").Inc()
		return dispatchResult{failed: true}
	}

	d.record(ctx, sch, store.RunSuccess, now)
	metrics.ReportDispatches.WithLabelValues("success").Inc()
	log.Info("report dispatched", logger.Count(len(recipients)))
	return dispatchResult{}
}

func (d *Dispatcher) record(ctx context.Context, sch store.ReportSchedule, status store.RunStatus, now time.Time) {
	if err := d.reports.RecordOutcome(ctx, sch.ID, status, now, nextRun(sch, now)); err != nil {
		logger.From(ctx).Error("recording report outcome failed",
			logger.ReportID(sch.ID),
			logger.Err(err),
		)
	}
}

// RunLoop runs cycles on a fixed interval until the context is canceled.
func (d *Dispatcher) RunLoop(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = 15 * time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := d.RunCycle(ctx); err != nil {
			logger.From(ctx).Error("dispatch cycle failed", logger.Err(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
