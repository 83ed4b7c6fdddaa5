// Package pipeline runs profile pages through parsing, party and rank resolution, career
// assembly and panel expansion, and records each run in the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/legislator-panel/internal/career"
	"github.com/sells-group/legislator-panel/internal/fetcher"
	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/panel"
	"github.com/sells-group/legislator-panel/internal/party"
	"github.com/sells-group/legislator-panel/internal/profile"
	"github.com/sells-group/legislator-panel/internal/rank"
	"github.com/sells-group/legislator-panel/internal/reference"
	"github.com/sells-group/legislator-panel/internal/riskset"
	"github.com/sells-group/legislator-panel/internal/store"
)

// Audit rules recorded by the pipeline itself. Resolver rules and parser overrides keep
// their own names.
const (
	RuleStructure    = "structure_error"
	RuleConstituency = "constituency_code"
	RuleSwitchDate   = "switch_date"
	RuleRankRange    = "rank_date_range"
	RuleParseError   = "parse_error"
	RuleNote         = "note"
	RuleGap          = "reference_gap"
)

const defaultWorkers = 8

// Options tunes a Pipeline.
type Options struct {
	Workers int
	Charset string
}

// Pipeline wires the stages together.
type Pipeline struct {
	tables   *reference.Tables
	store    store.Store
	parser   *profile.Parser
	resolver *party.Resolver
	expander *panel.Expander
	workers  int
}

// New creates a Pipeline. The store may be nil when only Parse and Expand are used.
func New(tables *reference.Tables, st store.Store, opts Options) *Pipeline {
	workers := opts.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Pipeline{
		tables:   tables,
		store:    st,
		parser:   profile.NewParser(tables, opts.Charset),
		resolver: party.NewResolver(tables),
		expander: panel.NewExpander(tables),
		workers:  workers,
	}
}

// Parsed is the outcome of the parsing stages.
type Parsed struct {
	Documents int
	Failed    int
	Records   []model.PersonLegislature
	Audit     []model.AuditEvent
}

// Expanded is the outcome of the panel stages.
type Expanded struct {
	PersonYears  []model.PersonYear
	RiskSet      []model.PersonYear
	RiskSetMulti []model.PersonYear
	Gaps         []panel.Gap
	Audit        []model.AuditEvent
}

// Result is one stored run. Either stage may be nil when the run only covered the other.
type Result struct {
	Run      *model.Run
	Parsed   *Parsed
	Expanded *Expanded
}

// Audit returns the events of both stages.
func (r *Result) Audit() []model.AuditEvent {
	var events []model.AuditEvent
	if r.Parsed != nil {
		events = append(events, r.Parsed.Audit...)
	}
	if r.Expanded != nil {
		events = append(events, r.Expanded.Audit...)
	}
	return events
}

type outcome struct {
	record *model.PersonLegislature
	events []model.AuditEvent
}

// Parse turns documents into assembled person-legislature records. Documents are parsed
// in parallel. A malformed document is skipped and recorded in the audit; only
// cancellation fails the batch.
func (p *Pipeline) Parse(ctx context.Context, docs []fetcher.Document) (*Parsed, error) {
	start := time.Now()
	outcomes := make([]outcome, len(docs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.parseOne(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse")
	}

	parsed := &Parsed{Documents: len(docs)}
	records := make([]model.PersonLegislature, 0, len(docs))
	for _, o := range outcomes {
		parsed.Audit = append(parsed.Audit, o.events...)
		if o.record == nil {
			parsed.Failed++
			continue
		}
		records = append(records, *o.record)
	}
	parsed.Records = career.Assemble(records, p.tables)

	zap.L().Info("pipeline: parse complete",
		zap.Int("documents", parsed.Documents),
		zap.Int("failed", parsed.Failed),
		zap.Int("records", len(parsed.Records)),
		zap.Int("audit_events", len(parsed.Audit)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return parsed, nil
}

func (p *Pipeline) parseOne(doc fetcher.Document) outcome {
	log := zap.L().With(zap.String("document", doc.Name))

	var o outcome
	fail := func(pr *profile.Profile, err error) outcome {
		log.Warn("pipeline: document skipped", zap.Error(err))
		o.events = append(o.events, event(doc.Name, pr, failureRule(err), err.Error()))
		return o
	}

	pr, err := p.parser.Parse(doc.Name, doc.Body)
	if err != nil {
		return fail(nil, err)
	}
	for _, name := range pr.Overrides {
		log.Warn("pipeline: override applied", zap.String("rule", name))
		o.events = append(o.events, event(doc.Name, pr, name, ""))
	}
	for _, note := range pr.Notes {
		o.events = append(o.events, event(doc.Name, pr, RuleNote, note))
	}

	res, err := p.resolver.Resolve(party.Input{
		Surname:     pr.Surname,
		Given:       pr.Given,
		Legislature: pr.Legislature,
		Text:        pr.PartyText,
		Minority:    pr.Minority,
	})
	if err != nil {
		return fail(pr, err)
	}
	for _, f := range res.Fired {
		log.Warn("pipeline: rule fired", zap.String("rule", string(f.Kind)), zap.String("detail", f.Detail))
		o.events = append(o.events, event(doc.Name, pr, string(f.Kind), f.Detail))
	}

	mandate := model.Span{From: pr.MandateStart.MonthYear(), To: pr.MandateEnd.MonthYear()}
	rk, err := rank.Resolve(pr.CaucusText, mandate, p.tables.HasNoCaucus(pr.Surname, pr.Given))
	if err != nil {
		return fail(pr, err)
	}

	o.record = &model.PersonLegislature{
		Document:       doc.Name,
		Legislature:    pr.Legislature,
		Chamber:        pr.Chamber,
		Constituency:   pr.Constituency,
		Surname:        pr.Surname,
		Given:          pr.Given,
		MandateStart:   pr.MandateStart,
		MandateEnd:     pr.MandateEnd,
		DiedInOffice:   pr.DiedInOffice,
		EntryPartyName: res.EntryName,
		EntryParty:     res.Entry,
		Rank:           rk.Level,
		RankSpan:       rk.Span,
		Destination:    res.Destination,
		SwitchMonth:    res.Switch.Month,
		SwitchYear:     res.Switch.Year,
	}
	return o
}

func failureRule(err error) string {
	switch {
	case errors.Is(err, profile.ErrStructure):
		return RuleStructure
	case errors.Is(err, profile.ErrConstituencyCode):
		return RuleConstituency
	case errors.Is(err, party.ErrSwitchDate):
		return RuleSwitchDate
	case errors.Is(err, rank.ErrDateRange):
		return RuleRankRange
	default:
		return RuleParseError
	}
}

func event(document string, pr *profile.Profile, rule, detail string) model.AuditEvent {
	e := model.AuditEvent{Document: document, Rule: rule, Detail: detail}
	if pr != nil {
		e.Surname, e.Given, e.Legislature = pr.Surname, pr.Given, pr.Legislature
	}
	return e
}

// Expand builds the person-year panel and both risk sets from assembled records. Each
// reference lookup that found nothing becomes an audit event.
func (p *Pipeline) Expand(ctx context.Context, records []model.PersonLegislature) (*Expanded, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: expand")
	}

	rows, gaps := p.expander.Expand(records)
	panel.Enrich(rows, p.tables)

	out := &Expanded{
		PersonYears:  rows,
		RiskSet:      riskset.Extract(rows, false),
		RiskSetMulti: riskset.Extract(rows, true),
		Gaps:         gaps,
	}

	byID := make(map[string]model.PersonLegislature, len(records))
	for _, r := range records {
		byID[gapKey(r.PersonID, r.Legislature)] = r
	}
	for _, g := range gaps {
		r := byID[gapKey(g.PersonID, g.Legislature)]
		out.Audit = append(out.Audit, model.AuditEvent{
			Document:    r.Document,
			Surname:     r.Surname,
			Given:       r.Given,
			Legislature: g.Legislature,
			Rule:        RuleGap,
			Detail:      fmt.Sprintf("%d %s %s", g.Year, g.Field, g.Key),
		})
	}

	zap.L().Info("pipeline: expand complete",
		zap.Int("records", len(records)),
		zap.Int("person_years", len(out.PersonYears)),
		zap.Int("risk_set", len(out.RiskSet)),
		zap.Int("risk_set_multi_year", len(out.RiskSetMulti)),
		zap.Int("gaps", len(gaps)),
	)
	return out, nil
}

func gapKey(personID int, legislature string) string {
	return fmt.Sprintf("%d|%s", personID, legislature)
}

// ParseRun parses documents as a new stored run.
func (p *Pipeline) ParseRun(ctx context.Context, source string, docs []fetcher.Document) (*Result, error) {
	run, err := p.createRun(ctx, source)
	if err != nil {
		return nil, err
	}
	res := &Result{Run: run}
	if res.Parsed, err = p.parseAndSave(ctx, run, docs); err != nil {
		return nil, p.fail(ctx, run, err)
	}
	return res, p.finish(ctx, run)
}

// ExpandRun expands the person-legislature table stored under runID and stores the panel
// alongside it.
func (p *Pipeline) ExpandRun(ctx context.Context, runID string) (*Result, error) {
	if p.store == nil {
		return nil, eris.New("pipeline: no store configured")
	}
	run, err := p.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: get run %s", runID)
	}
	records, err := p.store.LoadLegislatures(ctx, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load legislatures %s", runID)
	}
	res := &Result{Run: run}
	if res.Expanded, err = p.expandAndSave(ctx, run, records); err != nil {
		return nil, p.fail(ctx, run, err)
	}
	return res, p.finish(ctx, run)
}

// Run parses and expands documents as one stored run.
func (p *Pipeline) Run(ctx context.Context, source string, docs []fetcher.Document) (*Result, error) {
	run, err := p.createRun(ctx, source)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: run started", zap.String("source", source), zap.Int("documents", len(docs)))

	res := &Result{Run: run}
	if res.Parsed, err = p.parseAndSave(ctx, run, docs); err != nil {
		return nil, p.fail(ctx, run, err)
	}
	if res.Expanded, err = p.expandAndSave(ctx, run, res.Parsed.Records); err != nil {
		return nil, p.fail(ctx, run, err)
	}
	if err := p.finish(ctx, run); err != nil {
		return nil, err
	}
	log.Info("pipeline: run complete",
		zap.Int("legislatures", run.Legislatures),
		zap.Int("person_years", run.PersonYears),
		zap.Int("failed", run.Failed),
	)
	return res, nil
}

func (p *Pipeline) createRun(ctx context.Context, source string) (*model.Run, error) {
	if p.store == nil {
		return nil, eris.New("pipeline: no store configured")
	}
	run, err := p.store.CreateRun(ctx, source)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	return run, nil
}

func (p *Pipeline) parseAndSave(ctx context.Context, run *model.Run, docs []fetcher.Document) (*Parsed, error) {
	parsed, err := p.Parse(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveLegislatures(ctx, run.ID, parsed.Records); err != nil {
		return nil, eris.Wrap(err, "pipeline: save legislatures")
	}
	if err := p.store.SaveAudit(ctx, stamp(run.ID, parsed.Audit)); err != nil {
		return nil, eris.Wrap(err, "pipeline: save parse audit")
	}
	run.Documents, run.Failed, run.Legislatures = parsed.Documents, parsed.Failed, len(parsed.Records)
	return parsed, nil
}

func (p *Pipeline) expandAndSave(ctx context.Context, run *model.Run, records []model.PersonLegislature) (*Expanded, error) {
	expanded, err := p.Expand(ctx, records)
	if err != nil {
		return nil, err
	}
	if err := p.store.SavePersonYears(ctx, run.ID, expanded.PersonYears); err != nil {
		return nil, eris.Wrap(err, "pipeline: save person years")
	}
	// Expanding a run again replaces its gap events.
	if err := p.store.ClearAudit(ctx, run.ID, RuleGap); err != nil {
		return nil, eris.Wrap(err, "pipeline: clear expand audit")
	}
	if err := p.store.SaveAudit(ctx, stamp(run.ID, expanded.Audit)); err != nil {
		return nil, eris.Wrap(err, "pipeline: save expand audit")
	}
	run.PersonYears = len(expanded.PersonYears)
	return expanded, nil
}

// stamp sets the run id and creation time on events in place.
func stamp(runID string, events []model.AuditEvent) []model.AuditEvent {
	now := time.Now().UTC()
	for i := range events {
		events[i].RunID = runID
		events[i].CreatedAt = now
	}
	return events
}

func (p *Pipeline) finish(ctx context.Context, run *model.Run) error {
	run.Status = model.RunStatusComplete
	if err := p.store.FinishRun(ctx, run); err != nil {
		return eris.Wrap(err, "pipeline: finish run")
	}
	return nil
}

// fail marks the run failed and returns cause. The update outlives a cancelled ctx.
func (p *Pipeline) fail(ctx context.Context, run *model.Run, cause error) error {
	run.Status = model.RunStatusFailed
	if err := p.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Warn("pipeline: failed to mark run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	return cause
}
