package ops

import (
	"context"
	"encoding/json"
	"fmt"
	gotok "go/token"
	"time"

	"github.com/jschaf/bibmgr/ast"
	"github.com/jschaf/bibmgr/bibparser"
	"github.com/jschaf/bibmgr/citekey"
	"github.com/jschaf/bibmgr/dedupe"
	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/internal/logging"
	"github.com/jschaf/bibmgr/repository"
)

// Stage names one phase of the import pipeline, reported to a
// ProgressReporter keyed by stage name instead of an item key.
type Stage string

const (
	StageParsing    Stage = "parsing"
	StageProcessing Stage = "processing"
	StageValidating Stage = "validating"
	StageDedupe     Stage = "dedupe"
	StageResolving  Stage = "resolving"
	StageWriting    Stage = "writing"
	StageComplete   Stage = "complete"
)

// ConflictStrategy controls how ImportFile handles an incoming entry whose
// key (or a detected duplicate) already exists in the repository.
type ConflictStrategy string

const (
	ConflictSkip    ConflictStrategy = "skip"
	ConflictReplace ConflictStrategy = "replace"
	ConflictRename  ConflictStrategy = "rename"
	ConflictMerge   ConflictStrategy = "merge"
	ConflictAsk     ConflictStrategy = "ask"
)

// AskFunc is called for ConflictAsk to resolve one conflict interactively;
// it receives the incoming and existing entries and returns the strategy to
// actually apply for this one pair.
type AskFunc func(incoming, existing entry.Entry) ConflictStrategy

// SourceFormat names the wire format ImportFile should parse src as. The
// zero value is treated like FormatBibTeX: src is run through bibparser.
type SourceFormat string

const (
	FormatBibTeX SourceFormat = "bibtex"
	FormatJSON   SourceFormat = "json"
	FormatRIS    SourceFormat = "ris"
)

// RISParser decodes RIS-formatted source into entries. RIS parsing itself is
// a collaborator contract this module does not implement; ImportFile just
// dispatches to whatever implementation the caller supplies.
type RISParser interface {
	ParseRIS(src []byte) ([]entry.Entry, []error)
}

// ImportOptions configures ImportFile's conflict handling and validation.
type ImportOptions struct {
	Conflict     ConflictStrategy
	Ask          AskFunc
	Validate     bool
	Progress     ProgressReporter
	MergeNow     time.Time
	SourceFormat SourceFormat // defaults to FormatBibTeX
	RISParser    RISParser    // required when SourceFormat is FormatRIS

	// KeyGenerator fills in a citation key for any incoming entry that
	// arrives without one (JSON/RIS sources commonly do). When set,
	// ImportFile logs a one-line generation summary built from its
	// Statistics() once the batch is done.
	KeyGenerator *citekey.Generator
}

// ImportItemOutcome reports what happened to one source entry during an
// import.
type ImportItemOutcome struct {
	SourceKey string
	Key       string
	Action    string // "created", "replaced", "renamed", "merged", "skipped"
	Err       error
}

// ImportReport is the full outcome of one ImportFile call.
type ImportReport struct {
	ParseErrors   []error
	ParseWarnings []ast.Warning
	Items         []ImportItemOutcome
}

// ImportFile runs the full pipeline: parse bibtex source, convert each
// declaration to an entry.Entry, validate, detect duplicates against both
// the incoming batch and the existing repository, resolve conflicts per
// opts.Conflict, and write survivors.
func (o *Operations) ImportFile(ctx context.Context, filename string, src []byte, opts ImportOptions) ImportReport {
	report := ImportReport{}
	opts.Progress = nonNilReporter(opts.Progress)

	now := opts.MergeNow
	if now.IsZero() {
		now = o.now()
	}

	incoming, ok := o.parseSource(filename, src, opts, now, &report)
	if !ok {
		return report
	}
	opts.Progress.Report(len(incoming), len(incoming), string(StageProcessing))

	existing, err := o.repo.Entries.FindAll(ctx)
	if err != nil {
		report.ParseErrors = append(report.ParseErrors, err)
		return report
	}
	matcher := dedupe.NewMatcher()

	if opts.KeyGenerator != nil {
		incoming = generateMissingKeys(opts.KeyGenerator, incoming, existing)
	}

	for i, e := range incoming {
		outcome := o.resolveAndWrite(ctx, e, existing, matcher, opts, now)
		report.Items = append(report.Items, outcome)
		if outcome.Err == nil && outcome.Action != "skipped" {
			// Keep the in-memory existing set current so later items in the
			// same batch see this one as a duplicate candidate too.
			existing = append(existing, e)
		}
		opts.Progress.Report(i+1, len(incoming), string(StageWriting))
	}
	opts.Progress.Report(len(incoming), len(incoming), string(StageComplete))

	if opts.KeyGenerator != nil {
		stats := opts.KeyGenerator.Statistics()
		logging.WithComponent("ops").Info().
			Str("file", filename).
			Int("keys_generated", stats.TotalGenerated).
			Int("collisions", stats.Collisions).
			Int("disambiguated", stats.Disambiguated).
			Msg("import key generation summary")
	}
	return report
}

// generateMissingKeys fills in a citation key for every entry in incoming
// that doesn't already have one, checking collisions against both the
// repository's existing entries and keys already assigned earlier in this
// same batch.
func generateMissingKeys(gen *citekey.Generator, incoming, existing []entry.Entry) []entry.Entry {
	taken := make(map[string]bool, len(existing)+len(incoming))
	for _, e := range existing {
		taken[e.Key] = true
	}
	for _, e := range incoming {
		if e.Key != "" {
			taken[e.Key] = true
		}
	}
	out := make([]entry.Entry, len(incoming))
	for i, e := range incoming {
		if e.Key != "" {
			out[i] = e
			continue
		}
		key, err := gen.Generate(e, func(k string) bool { return taken[k] })
		if err == nil {
			e.Key = key
			taken[key] = true
		}
		out[i] = e
	}
	return out
}

// jsonEntry is the wire shape ImportFile accepts for FormatJSON: a plain
// array of entry.Entry, the same shape entry.Entry already marshals to for
// storage.
type jsonEntry = entry.Entry

// parseSource dispatches on opts.SourceFormat to produce the incoming entry
// batch, populating report's parse errors/warnings along the way. The
// returned bool is false when parsing failed hard enough that ImportFile
// should stop (e.g. malformed JSON, or no RIS collaborator configured).
func (o *Operations) parseSource(filename string, src []byte, opts ImportOptions, now time.Time, report *ImportReport) ([]entry.Entry, bool) {
	switch opts.SourceFormat {
	case FormatJSON:
		var decoded []jsonEntry
		if err := json.Unmarshal(src, &decoded); err != nil {
			report.ParseErrors = append(report.ParseErrors, fmt.Errorf("decode json import %s: %w", filename, err))
			return nil, false
		}
		opts.Progress.Report(0, len(decoded), string(StageParsing))
		return decoded, true
	case FormatRIS:
		if opts.RISParser == nil {
			report.ParseErrors = append(report.ParseErrors, fmt.Errorf("import %s: FormatRIS requires an ImportOptions.RISParser", filename))
			return nil, false
		}
		entries, errs := opts.RISParser.ParseRIS(src)
		report.ParseErrors = append(report.ParseErrors, errs...)
		opts.Progress.Report(0, len(entries), string(StageParsing))
		return entries, true
	default:
		return o.parseBibTeX(filename, src, opts, now, report)
	}
}

// parseBibTeX is the original, default dispatch target: it runs src through
// bibparser and converts every @-declaration to an entry.Entry.
func (o *Operations) parseBibTeX(filename string, src []byte, opts ImportOptions, now time.Time, report *ImportReport) ([]entry.Entry, bool) {
	fset := gotok.NewFileSet()
	file, parseErr := bibparser.ParseFile(fset, filename, src, bibparser.ParseComments)
	if parseErr != nil {
		if el, ok := parseErr.(*bibparser.ErrorList); ok {
			for _, e := range el.Errs {
				report.ParseErrors = append(report.ParseErrors, e)
			}
		} else {
			report.ParseErrors = append(report.ParseErrors, parseErr)
		}
	}
	if file == nil {
		return nil, false
	}
	report.ParseWarnings = file.Warnings
	opts.Progress.Report(0, len(file.Entries), string(StageParsing))

	incoming := make([]entry.Entry, 0, len(file.Entries))
	for _, decl := range file.Entries {
		bd, isEntry := decl.(*ast.BibDecl)
		if !isEntry {
			continue
		}
		e, err := entry.FromDecl(bd, now)
		if err != nil {
			report.Items = append(report.Items, ImportItemOutcome{SourceKey: bd.Key.Name, Err: err})
			continue
		}
		incoming = append(incoming, e)
	}
	return incoming, true
}

func (o *Operations) resolveAndWrite(
	ctx context.Context,
	e entry.Entry,
	existing []entry.Entry,
	matcher *dedupe.Matcher,
	opts ImportOptions,
	now time.Time,
) ImportItemOutcome {
	var dup *entry.Entry
	for i := range existing {
		if _, found := matcher.Match(e, existing[i]); found {
			d := existing[i]
			dup = &d
			break
		}
	}

	if dup == nil {
		saveOpts := repository.SaveOptions{SkipValidation: !opts.Validate}
		res := o.createWithOptions(ctx, e, false, saveOpts)
		if !res.Success {
			return ImportItemOutcome{SourceKey: e.Key, Key: e.Key, Action: "skipped", Err: fmt.Errorf("%s", res.Message)}
		}
		return ImportItemOutcome{SourceKey: e.Key, Key: e.Key, Action: "created"}
	}

	strategy := opts.Conflict
	if strategy == ConflictAsk && opts.Ask != nil {
		strategy = opts.Ask(e, *dup)
	}

	switch strategy {
	case ConflictSkip, ConflictAsk:
		return ImportItemOutcome{SourceKey: e.Key, Key: dup.Key, Action: "skipped"}
	case ConflictReplace:
		res := o.Replace(ctx, e.WithKey(dup.Key, now))
		if !res.Success {
			return ImportItemOutcome{SourceKey: e.Key, Key: dup.Key, Action: "skipped", Err: fmt.Errorf("%s", res.Message)}
		}
		return ImportItemOutcome{SourceKey: e.Key, Key: dup.Key, Action: "replaced"}
	case ConflictMerge:
		merged := dedupe.Merge([]entry.Entry{*dup, e}, dedupe.StrategyUnion, nil, now)
		merged = merged.WithKey(dup.Key, now)
		res := o.Replace(ctx, merged)
		if !res.Success {
			return ImportItemOutcome{SourceKey: e.Key, Key: dup.Key, Action: "skipped", Err: fmt.Errorf("%s", res.Message)}
		}
		return ImportItemOutcome{SourceKey: e.Key, Key: dup.Key, Action: "merged"}
	case ConflictRename:
		newKey := renameKey(dup.Key, existing)
		sourceKey := e.Key
		e = e.WithKey(newKey, now)
		res := o.createWithOptions(ctx, e, false, repository.SaveOptions{SkipValidation: !opts.Validate})
		if !res.Success {
			return ImportItemOutcome{SourceKey: sourceKey, Key: newKey, Action: "skipped", Err: fmt.Errorf("%s", res.Message)}
		}
		return ImportItemOutcome{SourceKey: sourceKey, Key: newKey, Action: "renamed"}
	default:
		return ImportItemOutcome{SourceKey: e.Key, Key: dup.Key, Action: "skipped"}
	}
}

// renameKey generates a basekey_N key that doesn't collide with anything in
// existing.
func renameKey(base string, existing []entry.Entry) string {
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[e.Key] = true
	}
	if !taken[base] {
		return base
	}
	for n := 1; n < 100000; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
	return base
}

func nonNilReporter(r ProgressReporter) ProgressReporter {
	if r == nil {
		return noopReporter{}
	}
	return r
}
