// Package enrich turns entry handles into enriched records with a secondary
// per-entity lookup. A failed lookup is carried on the record; no record is
// ever dropped.
package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/model"
	"github.com/sells-group/harvest-cli/internal/resilience"
)

// ErrNoKey marks a handle whose lookup key could not be extracted.
var ErrNoKey = eris.New("no key extracted")

// RawDocument is an undecoded detail response body.
type RawDocument []byte

// Fetcher performs the per-entity detail lookup.
type Fetcher interface {
	FetchDetail(ctx context.Context, key, referer string) (RawDocument, error)
}

// Parser extracts named fields from a detail document.
type Parser interface {
	ParseFields(doc RawDocument) (map[string]string, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(doc RawDocument) (map[string]string, error)

// ParseFields implements Parser.
func (f ParserFunc) ParseFields(doc RawDocument) (map[string]string, error) { return f(doc) }

// Result is the tagged outcome of one lookup: Fields when Err is nil.
type Result struct {
	Fields map[string]string
	Err    error
}

// Ok builds a successful Result.
func Ok(fields map[string]string) Result { return Result{Fields: fields} }

// Err builds a failed Result.
func Err(err error) Result { return Result{Err: err} }

// IsOk reports whether the lookup succeeded.
func (r Result) IsOk() bool { return r.Err == nil }

// Options configures a Pipeline.
type Options struct {
	// Referer is sent with every detail request.
	Referer string
	// Breaker short-circuits lookups after repeated failures. Optional.
	Breaker *resilience.CircuitBreaker
}

// Pipeline enriches handles one at a time.
type Pipeline struct {
	fetcher Fetcher
	parser  Parser
	opts    Options
	log     *zap.Logger
}

// New creates a Pipeline.
func New(fetcher Fetcher, parser Parser, opts Options) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		parser:  parser,
		opts:    opts,
		log:     zap.L().With(zap.String("component", "enrich")),
	}
}

// Lookup fetches and parses the detail document for one handle.
func (p *Pipeline) Lookup(ctx context.Context, h model.EntryHandle) Result {
	if !h.HasKey() {
		return Err(ErrNoKey)
	}

	fetch := func(ctx context.Context) (RawDocument, error) {
		return p.fetcher.FetchDetail(ctx, strings.TrimSpace(h.Key), p.opts.Referer)
	}

	var (
		doc RawDocument
		err error
	)
	if p.opts.Breaker != nil {
		doc, err = resilience.ExecuteVal(ctx, p.opts.Breaker, fetch)
	} else {
		doc, err = fetch(ctx)
	}
	if err != nil {
		return Err(eris.Wrap(err, "fetch detail"))
	}

	fields, err := p.parser.ParseFields(doc)
	if err != nil {
		return Err(eris.Wrap(err, "parse detail"))
	}
	return Ok(fields)
}

// Enrich returns exactly one record per handle, in input order. Handles that
// could not be enriched carry the failure in EnrichedRecord.Error. Once ctx is
// cancelled the remaining handles are emitted with the cancellation error.
func (p *Pipeline) Enrich(ctx context.Context, handles []model.EntryHandle) []model.EnrichedRecord {
	out := make([]model.EnrichedRecord, 0, len(handles))
	var failed int

	for _, h := range handles {
		var res Result
		if err := ctx.Err(); err != nil {
			res = Err(eris.Wrap(err, "enrichment cancelled"))
		} else {
			res = p.Lookup(ctx, h)
		}

		rec := model.EnrichedRecord{EntryHandle: h, Fields: res.Fields}
		if !res.IsOk() {
			failed++
			rec.Error = Reason(res.Err)
			p.log.Debug("entry not enriched",
				zap.Int("index", h.Index),
				zap.String("name", h.Name),
				zap.String("reason", rec.Error),
			)
		}
		out = append(out, rec)
	}

	p.log.Info("enrichment complete",
		zap.Int("entries", len(handles)),
		zap.Int("enriched", len(handles)-failed),
		zap.Int("failed", failed),
	)
	return out
}

// Reason renders err as a single-line string for a CSV cell.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return strings.Join(strings.Fields(err.Error()), " ")
}

// Flatten joins list-valued fields into one delimited string.
func Flatten(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}

// Count returns how many records were enriched without error.
func Count(records []model.EnrichedRecord) (ok, failed int) {
	for _, r := range records {
		if r.Error == "" {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
