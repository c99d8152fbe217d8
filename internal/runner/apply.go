package runner

import (
	"context"
	"fmt"
	"time"

	"catalogsync/internal/catalog"
	"catalogsync/internal/config"
	"catalogsync/internal/logging"
	"catalogsync/internal/report"
	"catalogsync/internal/surface"
)

const snapshotTimeout = 15 * time.Second

// Apply runs the full pipeline. One item's failure never stops the run; the
// session is closed on every exit path.
func (r *Runner) Apply(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if r.Opener == nil {
		return sum, fmt.Errorf("%w: no browser configured", config.ErrInvalid)
	}
	if len(sum.Decisions) == 0 {
		logging.RunWarn("%s has no item rows, panel left untouched", sum.Document)
		r.finish(sum, time.Since(start))
		return sum, nil
	}

	sess, err := r.Opener.Open(ctx, false)
	if err != nil {
		return sum, fmt.Errorf("open session: %w", err)
	}
	defer closeSession(sess)

	surf, err := sess.Catalog(ctx)
	if err != nil {
		return sum, fmt.Errorf("open catalog: %w", err)
	}

	for _, d := range sum.Decisions {
		if ctx.Err() != nil {
			logging.RunWarn("run interrupted after %d of %d items", sum.Attempted(), len(sum.Decisions))
			break
		}
		res := r.applyOne(ctx, surf, d)
		sum.Results = append(sum.Results, res)
		if res.Err != nil {
			sum.Fail++
			continue
		}
		sum.OK++
		if res.Outcome.Changed() {
			sum.Changed++
		}
	}

	r.finish(sum, time.Since(start))
	return sum, ctx.Err()
}

func (r *Runner) applyOne(ctx context.Context, s surface.Surface, d catalog.Decision) ItemResult {
	start := time.Now()
	itemCtx := ctx
	if r.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, r.ItemTimeout)
		defer cancel()
	}

	out, err := surface.Apply(itemCtx, s, d)
	res := ItemResult{Decision: d, Outcome: out, Err: err, Duration: time.Since(start)}
	r.Metrics.ObserveItem(err == nil, out.AvailabilityChanged, out.QuantityChanged, res.Duration)

	log := logging.Get(logging.CategoryRun).With("item", d.DisplayName)
	if err == nil {
		log.Info("ok (available=%v, qty=%d, changed=%v)", d.Available, d.Quantity, out.Changed())
		return res
	}

	log.Error("failed: %v", err)
	r.snapshot(ctx, s, d.DisplayName, err)
	return res
}

// snapshot captures the page after a failure. Its own errors are logged only.
func (r *Runner) snapshot(ctx context.Context, s surface.Surface, name string, cause error) {
	if r.Evidence == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
	defer cancel()

	png, err := s.Snapshot(sctx)
	if err != nil {
		logging.EvidenceWarn("snapshot for %q failed: %v", name, err)
		png = nil
	}
	if _, err := r.Evidence.WriteSnapshot(sctx, name, png, cause); err != nil {
		logging.EvidenceWarn("%v", err)
	}
}

func (r *Runner) finish(sum *Summary, elapsed time.Duration) {
	logging.Run("summary: %d ok, %d failed, %d changed in %s", sum.OK, sum.Fail, sum.Changed, elapsed.Round(time.Millisecond))

	r.Metrics.FinishRun(elapsed)
	if err := r.Metrics.WriteTextfile(r.MetricsTextfile); err != nil {
		logging.RunWarn("%v", err)
	}

	if r.Report == nil {
		return
	}
	var failures []report.ItemFailure
	for _, res := range sum.Results {
		if res.Err != nil {
			failures = append(failures, report.ItemFailure{DisplayName: res.Decision.DisplayName, Reason: reason(res.Err)})
		}
	}
	if err := r.Report.Summary(r.out(), sum.OK, sum.Fail, sum.Changed, failures); err != nil {
		logging.RunWarn("render summary: %v", err)
	}
}
