package quality

import (
	"fmt"
	"strings"

	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/validate"
)

// RequiredFieldRules builds one KindRequiredField rule per entry type, each
// delegating to entry.Entry.MissingRequiredFields so the disjunctive
// author/editor- and chapter/pages-style alternatives stay in one place.
func RequiredFieldRules() []Rule {
	rules := make([]Rule, 0, len(entry.KnownTypes))
	for _, t := range entry.KnownTypes {
		t := t
		rules = append(rules, Rule{
			Name:    "required-fields-" + string(t),
			Kind:    KindRequiredField,
			Applies: func(e entry.Entry) bool { return e.Type == t },
			Check: func(e entry.Entry) *entry.ValidationResult {
				missing := e.MissingRequiredFields()
				if len(missing) == 0 {
					return nil
				}
				names := make([]string, len(missing))
				for i, alt := range missing {
					fs := make([]string, len(alt.Fields))
					for j, f := range alt.Fields {
						fs[j] = string(f)
					}
					names[i] = strings.Join(fs, " or ")
				}
				return &entry.ValidationResult{
					Field:    "type:" + string(t),
					Value:    e.Key,
					Valid:    false,
					Severity: entry.SeverityError,
					Message:  fmt.Sprintf("missing required field(s): %s", strings.Join(names, "; ")),
				}
			},
		})
	}
	return rules
}

// formatValidator pairs a field with the validator from the validate
// package that governs its shape.
type formatValidator struct {
	field     entry.Field
	validator func(string) entry.ValidationResult
}

var formatValidators = []formatValidator{
	{entry.FieldISBN, validate.ISBN},
	{entry.FieldISSN, validate.ISSN},
	{entry.FieldDOI, validate.DOI},
	{entry.FieldURL, validate.URL},
}

// FormatRules builds one KindFormat rule per validated field, each a thin
// wrapper that routes the field's value to its validator when present.
func FormatRules() []Rule {
	rules := make([]Rule, 0, len(formatValidators))
	for _, fv := range formatValidators {
		fv := fv
		rules = append(rules, Rule{
			Name: "format-" + string(fv.field),
			Kind: KindFormat,
			Applies: func(e entry.Entry) bool {
				_, ok := e.FieldValue(fv.field)
				return ok
			},
			Check: func(e entry.Entry) *entry.ValidationResult {
				v, _ := e.FieldValue(fv.field)
				r := fv.validator(v)
				return &r
			},
		})
	}
	return rules
}

// CorrelationRules builds the cross-field rules from the spec: article
// pages implying volume/number, book ISBN implying publisher, thesis
// requiring school, and misc with an empty URL.
func CorrelationRules() []Rule {
	return []Rule{
		{
			Name: "article-pages-implies-volume-or-number",
			Kind: KindCorrelation,
			Applies: func(e entry.Entry) bool {
				return e.Type == entry.TypeArticle && e.Pages != ""
			},
			Check: func(e entry.Entry) *entry.ValidationResult {
				if e.Volume != "" || e.Number != "" {
					return nil
				}
				return &entry.ValidationResult{
					Field: string(entry.FieldPages), Value: e.Key, Valid: true,
					Severity: entry.SeveritySuggestion,
					Message:  "article with pages should have a volume or number",
				}
			},
		},
		{
			Name: "book-isbn-implies-publisher",
			Kind: KindCorrelation,
			Applies: func(e entry.Entry) bool {
				return e.Type == entry.TypeBook && e.ISBN != ""
			},
			Check: func(e entry.Entry) *entry.ValidationResult {
				if e.Publisher != "" {
					return nil
				}
				return &entry.ValidationResult{
					Field: string(entry.FieldISBN), Value: e.Key, Valid: true,
					Severity: entry.SeveritySuggestion,
					Message:  "book with isbn should have a publisher",
				}
			},
		},
		{
			Name: "thesis-requires-school",
			Kind: KindCorrelation,
			Applies: func(e entry.Entry) bool {
				return e.Type == entry.TypePhdthesis || e.Type == entry.TypeMastersthesis
			},
			Check: func(e entry.Entry) *entry.ValidationResult {
				if e.School != "" {
					return nil
				}
				return &entry.ValidationResult{
					Field: string(entry.FieldSchool), Value: e.Key, Valid: true,
					Severity: entry.SeveritySuggestion,
					Message:  "thesis entry should have a school",
				}
			},
		},
		{
			Name: "misc-empty-url-warns",
			Kind: KindCorrelation,
			Applies: func(e entry.Entry) bool {
				return e.Type == entry.TypeMisc && e.URL == ""
			},
			Check: func(e entry.Entry) *entry.ValidationResult {
				return &entry.ValidationResult{
					Field: string(entry.FieldURL), Value: e.Key, Valid: true,
					Severity: entry.SeverityWarning,
					Message:  "misc entry has an empty url field",
				}
			},
		},
	}
}

// DefaultRuleSets returns the four always-on built-in rule sets.
func DefaultRuleSets(ctx Context) []RuleSet {
	return []RuleSet{
		{Name: "required-fields", Enabled: true, Rules: RequiredFieldRules()},
		{Name: "formats", Enabled: true, Rules: FormatRules()},
		{Name: "correlations", Enabled: true, Rules: CorrelationRules()},
		{Name: "consistency", Enabled: true, Rules: ConsistencyRules(ctx)},
	}
}
