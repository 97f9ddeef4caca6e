package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/taskplan/internal/classifier"
	"github.com/roach88/taskplan/internal/ir"
)

// ComputedAtLayout formats computed_at as an ISO-8601 UTC instant with
// millisecond precision.
const ComputedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultClassifyWorkers bounds concurrent line item classification.
const DefaultClassifyWorkers = 4

// Source supplies everything a plan preview is built from.
//
// Registry reads return inactive entries too, so the classifier can tell
// "inactive" apart from "unknown". Templates and Rules return active rows
// only. Record returns an error wrapping ir.ErrNotFound for an unknown URI.
type Source interface {
	WorkspaceConfig(ctx context.Context) (ir.WorkspaceConfig, error)
	Categories(ctx context.Context) ([]ir.RegistryEntry, error)
	Deliverables(ctx context.Context) ([]ir.RegistryEntry, error)
	Record(ctx context.Context, uri string) (ir.Record, error)
	LineItems(ctx context.Context, recordURI string) ([]ir.LineItem, error)
	Templates(ctx context.Context) ([]ir.Template, error)
	Rules(ctx context.Context) ([]ir.Rule, error)
}

// PlanRequest is the complete, already-loaded input to Build.
type PlanRequest struct {
	WorkspaceConfig ir.WorkspaceConfig
	Categories      []ir.RegistryEntry
	Deliverables    []ir.RegistryEntry
	Record          ir.Record
	LineItems       []ir.LineItem
	Templates       []ir.Template
	Rules           []ir.Rule
}

// Planner builds plan previews.
//
// Build is a pure function of its PlanRequest and the clock; Preview adds
// loading from a Source. A Planner holds no per-run state and is safe for
// concurrent use.
type Planner struct {
	source  Source
	now     func() time.Time
	runIDs  RunIDGenerator
	workers int
	logger  *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock sets the clock used for computed_at.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

// WithRunIDGenerator sets the generator for log correlation ids.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(p *Planner) {
		p.runIDs = gen
	}
}

// WithClassifyWorkers bounds concurrent classification. Values below 1
// mean 1.
func WithClassifyWorkers(n int) Option {
	return func(p *Planner) {
		p.workers = n
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = l
	}
}

// New creates a Planner reading from src. src may be nil when only Build
// is used.
func New(src Source, opts ...Option) *Planner {
	p := &Planner{
		source:  src,
		now:     time.Now,
		runIDs:  UUIDv7Generator{},
		workers: DefaultClassifyWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Preview loads the record identified by recordURI and everything it
// depends on from the Source, then builds its plan preview.
//
// Errors are *PlanError values: MISSING_RECORD_URI for a blank URI,
// RECORD_NOT_FOUND for an unknown record, SOURCE_FAILURE when a read
// fails and CRYPTO_UNAVAILABLE when hashing cannot run.
func (p *Planner) Preview(ctx context.Context, recordURI string) (*ir.PlanPreview, error) {
	if strings.TrimSpace(recordURI) == "" {
		return nil, NewMissingRecordURIError()
	}
	if p.source == nil {
		return nil, NewSourceError(recordURI, "source", errors.New("planner has no source"))
	}

	req, err := p.load(ctx, recordURI)
	if err != nil {
		return nil, err
	}
	return p.Build(ctx, req)
}

func (p *Planner) load(ctx context.Context, recordURI string) (PlanRequest, error) {
	var req PlanRequest
	var err error

	record, err := p.source.Record(ctx, recordURI)
	if err != nil {
		if errors.Is(err, ir.ErrNotFound) {
			return req, NewNotFoundError(recordURI, err)
		}
		return req, NewSourceError(recordURI, "record", err)
	}
	req.Record = record

	if req.WorkspaceConfig, err = p.source.WorkspaceConfig(ctx); err != nil {
		return req, NewSourceError(recordURI, "workspace config", err)
	}
	if req.Categories, err = p.source.Categories(ctx); err != nil {
		return req, NewSourceError(recordURI, "categories", err)
	}
	if req.Deliverables, err = p.source.Deliverables(ctx); err != nil {
		return req, NewSourceError(recordURI, "deliverables", err)
	}
	if req.LineItems, err = p.source.LineItems(ctx, recordURI); err != nil {
		return req, NewSourceError(recordURI, "line items", err)
	}
	if req.Templates, err = p.source.Templates(ctx); err != nil {
		return req, NewSourceError(recordURI, "templates", err)
	}
	if req.Rules, err = p.source.Rules(ctx); err != nil {
		return req, NewSourceError(recordURI, "rules", err)
	}
	return req, nil
}

// Build assembles the plan preview for an already-loaded request.
//
// Stages run in a fixed order: classify every line item, derive context
// groups, match rules against groups, then hash and stamp the result.
// Data anomalies become warnings; the only errors are context
// cancellation and a missing hash primitive.
func (p *Planner) Build(ctx context.Context, req PlanRequest) (*ir.PlanPreview, error) {
	runID := p.runIDs.Generate()
	log := p.logger.With("run_id", runID, "record_uri", req.Record.URI)

	reg := classifier.NewRegistry(req.Categories, req.Deliverables)
	classifications, err := classifier.ClassifyAll(ctx, req.LineItems, reg, p.workers)
	if err != nil {
		return nil, err
	}

	enriched := make([]ir.EnrichedLineItem, len(req.LineItems))
	warnings := []string{}
	for i, item := range req.LineItems {
		enriched[i] = classifier.Enrich(item, reg, classifications[i])
		for _, w := range classifications[i].Warnings {
			warnings = append(warnings, item.URI+": "+w)
		}
	}
	log.Debug("classified line items", "count", len(enriched), "warnings", len(warnings))

	groups := DeriveGroups(req.Record, enriched)
	previewWarnings := []string{}
	for _, g := range groups {
		previewWarnings = append(previewWarnings, g.Warnings...)
	}

	matched := MatchTemplates(groups, req.Rules, req.Templates)
	previewWarnings = append(previewWarnings, matched.Warnings...)
	warnings = append(warnings, previewWarnings...)
	log.Debug("matched templates", "groups", len(matched.Groups), "contexts", len(matched.MatchedTemplatesByContext))

	input := ir.PlanInput{Record: req.Record, LineItems: enriched}
	inputHash, err := ir.PlanInputHash(input)
	if err != nil {
		return nil, p.hashError(req.Record.URI, err)
	}
	planID, err := ir.PlanID(req.Record.URI, req.Record.SnapshotHash, inputHash)
	if err != nil {
		return nil, p.hashError(req.Record.URI, err)
	}

	preview := &ir.PlanPreview{
		PlanInput: input,
		Preview: ir.PreviewBody{
			Groups:   matched.Groups,
			Warnings: previewWarnings,
		},
		MatchedTemplatesByContext: matched.MatchedTemplatesByContext,
		Versions: ir.Versions{
			WorkspaceConfigVersion: req.WorkspaceConfig.Version,
			ClassifierVersion:      ir.ClassifierVersion,
			PlannerVersion:         ir.PlannerVersion,
		},
		ComputedAt: p.now().UTC().Format(ComputedAtLayout),
		Debug: ir.Debug{
			PlanID:        planID,
			PlanInputHash: inputHash,
			SnapshotHash:  req.Record.SnapshotHash,
		},
		Warnings: warnings,
	}

	log.Info("plan preview built",
		"plan_id", planID,
		"line_items", len(enriched),
		"groups", len(matched.Groups),
		"warnings", len(warnings))
	return preview, nil
}

func (p *Planner) hashError(recordURI string, err error) error {
	if errors.Is(err, ir.ErrCryptoUnavailable) {
		return NewCryptoUnavailableError(recordURI, err)
	}
	return &PlanError{Code: ErrCodeInternal, Message: MsgBuildFailed, RecordURI: recordURI, Err: err}
}
