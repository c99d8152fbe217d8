// Package runner sequences a catalog sync run: fetch the newest spreadsheet,
// decide every item, then preview the decisions or apply them through a
// browser session.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"catalogsync/internal/browser"
	"catalogsync/internal/catalog"
	"catalogsync/internal/config"
	"catalogsync/internal/evidence"
	"catalogsync/internal/logging"
	"catalogsync/internal/metrics"
	"catalogsync/internal/namemap"
	"catalogsync/internal/report"
	"catalogsync/internal/sheet"
	"catalogsync/internal/source"
	"catalogsync/internal/surface"
)

// Mode selects what a run does.
type Mode int

const (
	// ModeApply runs the full pipeline and mutates the panel.
	ModeApply Mode = iota
	// ModePreview decides every item and touches nothing external.
	ModePreview
	// ModeAuthenticate only establishes or refreshes the panel session.
	ModeAuthenticate
)

func (m Mode) String() string {
	switch m {
	case ModePreview:
		return "preview"
	case ModeAuthenticate:
		return "authenticate"
	default:
		return "apply"
	}
}

// ItemResult is the outcome of applying one decision.
type ItemResult struct {
	Decision catalog.Decision
	Outcome  surface.Outcome
	Err      error
	Duration time.Duration
}

// Summary describes a finished preview or apply.
type Summary struct {
	Document  string
	Decisions []catalog.Decision
	Results   []ItemResult

	OK      int
	Fail    int
	Changed int
}

// Attempted returns how many items were applied, successfully or not.
func (s *Summary) Attempted() int { return s.OK + s.Fail }

// Runner wires the run's collaborators. Evidence, Metrics, Report and Names
// are optional.
type Runner struct {
	Source   source.Folder
	Names    namemap.Store
	Opener   Opener
	Evidence *evidence.Recorder
	Metrics  *metrics.Metrics
	Report   *report.Renderer

	Rules   catalog.Rules
	Columns catalog.Columns

	// ItemTimeout bounds the apply of one item.
	ItemTimeout time.Duration
	// MetricsTextfile receives the run metrics after an apply.
	MetricsTextfile string
	// Confirm blocks until the operator has signed in.
	Confirm func(ctx context.Context) error
	// Out receives rendered reports. Defaults to stdout.
	Out io.Writer
}

// Run executes mode.
func (r *Runner) Run(ctx context.Context, mode Mode) (*Summary, error) {
	logging.Run("starting %s run", mode)
	switch mode {
	case ModePreview:
		return r.Preview(ctx)
	case ModeAuthenticate:
		return nil, r.Authenticate(ctx)
	default:
		return r.Apply(ctx)
	}
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

// prepare fetches the newest document and decides every item in it.
func (r *Runner) prepare(ctx context.Context) (*Summary, error) {
	if r.Source == nil {
		return nil, fmt.Errorf("%w: no source folder", config.ErrInvalid)
	}
	doc, err := source.FetchLatest(ctx, r.Source)
	if err != nil {
		return nil, err
	}
	if r.Evidence != nil {
		if _, err := r.Evidence.WriteDocument(ctx, doc.Name, doc.Data); err != nil {
			logging.EvidenceWarn("%v", err)
		}
	}

	rows, err := sheet.Decode(doc.Name, doc.Data)
	if err != nil {
		return nil, err
	}
	items := catalog.Normalize(rows, r.Columns)

	names, err := namemap.LoadOrEmpty(ctx, r.Names)
	if err != nil {
		return nil, fmt.Errorf("load name map: %w", err)
	}

	decisions := catalog.DecideAll(items, names, r.Rules)
	available := 0
	for _, d := range decisions {
		if d.Available {
			available++
		}
	}
	r.Metrics.SetDecisions(available, len(decisions)-available)
	logging.Run("%s: %d items decided (%d available)", doc.Name, len(decisions), available)

	return &Summary{Document: doc.Name, Decisions: decisions}, nil
}

// Preview fetches and decides without opening a browser.
func (r *Runner) Preview(ctx context.Context) (*Summary, error) {
	sum, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range sum.Decisions {
		logging.Run("[preview] %s -> %s (available=%v, qty=%d)", d.Item.Name, d.DisplayName, d.Available, d.Quantity)
	}
	if r.Report != nil {
		if err := r.Report.Preview(r.out(), sum.Document, sum.Decisions); err != nil {
			logging.RunWarn("render preview: %v", err)
		}
	}
	return sum, nil
}

// Authenticate opens an interactive session and establishes panel access.
// No document is fetched and no item is touched.
func (r *Runner) Authenticate(ctx context.Context) (err error) {
	if r.Opener == nil {
		return fmt.Errorf("%w: no browser configured", config.ErrInvalid)
	}
	sess, err := r.Opener.Open(ctx, true)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer closeSession(sess)

	if err := sess.Authenticate(ctx, r.Confirm); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	logging.Run("session ready")
	return nil
}

func closeSession(sess Session) {
	if err := sess.Close(); err != nil {
		logging.RunWarn("close session: %v", err)
	}
}

// IsFatal reports whether err is a configuration, credential or source
// problem the operator must fix before running again.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		config.ErrInvalid,
		source.ErrCredentials,
		source.ErrNotFound,
		sheet.ErrDecode,
		namemap.ErrInvalidMap,
		browser.ErrConfig,
		browser.ErrCatalogUnreachable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
