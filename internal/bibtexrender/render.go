// Package bibtexrender renders parsed bibtex field values (ast.Expr trees)
// into plain text (it does not emit bibtex source), so the quality and
// repository layers can work with entries as plain strings while the
// parser/citekey layers keep working with the richer ast representation.
package bibtexrender

import (
	"fmt"
	"io"
	"strings"

	"github.com/jschaf/bibmgr/ast"
	"github.com/jschaf/bibmgr/render"
	"github.com/jschaf/bibmgr/token"
)

// Option configures a TextRenderer.
type Option func(*TextRenderer)

// Override replaces the default rendering of a node kind. kind is the node's
// Go type name without the package qualifier, e.g. "TextMath" or "TextComma".
func Override(kind string, fn func(w io.Writer, x ast.Expr) error) Option {
	return func(r *TextRenderer) { r.overrides[kind] = fn }
}

// TextRenderer flattens an ast.Expr field value into plain prose, expanding
// TeX accents into their Unicode equivalent and dropping brace-protection
// groups.
type TextRenderer struct {
	overrides map[string]func(w io.Writer, x ast.Expr) error
}

// NewTextRenderer builds a TextRenderer with the given overrides applied on
// top of the defaults.
func NewTextRenderer(opts ...Option) *TextRenderer {
	r := &TextRenderer{overrides: make(map[string]func(w io.Writer, x ast.Expr) error)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the plain-text rendering of x to w.
func (r *TextRenderer) Render(w io.Writer, x ast.Expr) error {
	switch t := x.(type) {
	case *ast.ParsedText:
		for _, v := range t.Values {
			if err := r.Render(w, v); err != nil {
				return err
			}
		}
		return nil
	case *ast.ConcatExpr:
		if err := r.Render(w, t.X); err != nil {
			return err
		}
		return r.Render(w, t.Y)
	case *ast.MacroText:
		for _, v := range t.Values {
			if err := r.Render(w, v); err != nil {
				return err
			}
		}
		return nil
	case *ast.BasicLit:
		_, err := io.WriteString(w, t.Value)
		return err
	case *ast.Text:
		return r.write(w, "Text", t, t.Value)
	case *ast.TextSpace:
		return r.write(w, "TextSpace", t, " ")
	case *ast.TextNBSP:
		return r.write(w, "TextNBSP", t, " ")
	case *ast.TextComma:
		return r.write(w, "TextComma", t, ",")
	case *ast.TextHyphen:
		return r.write(w, "TextHyphen", t, t.Value)
	case *ast.TextMath:
		return r.write(w, "TextMath", t, "$"+t.Value+"$")
	case *ast.TextEscaped:
		return r.write(w, "TextEscaped", t, t.Value)
	case *ast.TextAccent:
		rn, err := render.RenderAccent(t.Accent, t.Text.Value)
		if err != nil {
			// Fall back to the literal TeX source rather than failing the whole
			// render; callers doing quality checks still want the rest of the
			// field.
			return r.write(w, "TextAccent", t, string(t.Accent)+t.Text.Value)
		}
		return r.write(w, "TextAccent", t, string(rn))
	case *ast.Ident:
		_, err := io.WriteString(w, t.Name)
		return err
	case nil:
		return nil
	default:
		return fmt.Errorf("bibtexrender: unhandled ast.Expr type %T", t)
	}
}

func (r *TextRenderer) write(w io.Writer, kind string, x ast.Expr, def string) error {
	if fn, ok := r.overrides[kind]; ok {
		return fn(w, x)
	}
	_, err := io.WriteString(w, def)
	return err
}

// String renders x to a plain string using the default TextRenderer.
func String(x ast.Expr) string {
	sb := &strings.Builder{}
	if err := defaultRenderer.Render(sb, x); err != nil {
		return ""
	}
	return sb.String()
}

// AuthorString renders a single ast.Author as "First Prefix Last, Suffix",
// omitting empty components.
func AuthorString(a *ast.Author) string {
	if a.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, t := range []*ast.Text{a.First, a.Prefix, a.Last} {
		if t != nil && t.Value != "" {
			parts = append(parts, t.Value)
		}
	}
	s := strings.Join(parts, " ")
	if a.Suffix != nil && a.Suffix.Value != "" {
		s += ", " + a.Suffix.Value
	}
	return s
}

// AuthorsString joins a list of authors with " and ", matching bibtex's own
// author-field separator.
func AuthorsString(as ast.Authors) string {
	parts := make([]string, 0, len(as))
	for _, a := range as {
		parts = append(parts, AuthorString(a))
	}
	return strings.Join(parts, " and ")
}

var defaultRenderer = NewTextRenderer()

// BasicLitKind reports the token.Token kind backing a literal, used by
// callers that need to decide between string- and number-shaped storage.
func BasicLitKind(x ast.Expr) (token.Token, bool) {
	if l, ok := x.(*ast.BasicLit); ok {
		return l.Kind, true
	}
	return token.Illegal, false
}
