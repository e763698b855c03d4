package entry

import (
	"fmt"
	"time"

	"github.com/jschaf/bibmgr/ast"
	"github.com/jschaf/bibmgr/internal/bibtexrender"
)

// FromDecl converts a parsed *ast.BibDecl into an Entry. Author and editor
// tags are split into Person values via the bibtex name grammar; every
// other tag is rendered to plain text and routed through Entry.WithField.
// A malformed author/editor field produces an error but still yields a
// best-effort Entry (the field is left empty) so one bad entry does not
// block importing the rest of a file.
func FromDecl(decl *ast.BibDecl, now time.Time) (Entry, error) {
	e := New(decl.Key.Name, Type(decl.Type), now)
	var errs []error
	for _, tag := range decl.Tags {
		switch Field(tag.Name) {
		case FieldAuthor:
			people, err := personsFromExpr(tag.Value)
			if err != nil {
				errs = append(errs, fmt.Errorf("author: %w", err))
				continue
			}
			e = e.WithAuthors(people, now)
		case FieldEditor:
			people, err := personsFromExpr(tag.Value)
			if err != nil {
				errs = append(errs, fmt.Errorf("editor: %w", err))
				continue
			}
			e = e.WithEditors(people, now)
		default:
			e = e.WithField(Field(tag.Name), bibtexrender.String(tag.Value), now)
		}
	}
	if len(errs) == 0 {
		return e, nil
	}
	return e, fmt.Errorf("entry %s: %w", decl.Key.Name, joinErrs(errs))
}

func joinErrs(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

// personsFromExpr splits an author/editor field value into Person names.
func personsFromExpr(x ast.Expr) ([]Person, error) {
	txt := flattenToParsedText(x)
	authors, err := extractAuthors(txt)
	if err != nil {
		return nil, err
	}
	out := make([]Person, 0, len(authors))
	for _, a := range authors {
		out = append(out, Person{
			Given:  a.First.Value,
			Von:    a.Prefix.Value,
			Family: a.Last.Value,
			Suffix: a.Suffix.Value,
		})
	}
	return out, nil
}

// flattenToParsedText coerces any field-value expression into a single
// *ast.ParsedText so the name splitter always sees one flat token run, even
// when the value was built from a '#' concatenation of several literals.
func flattenToParsedText(x ast.Expr) *ast.ParsedText {
	switch t := x.(type) {
	case nil:
		return nil
	case *ast.ParsedText:
		return t
	case *ast.ConcatExpr:
		left := flattenToParsedText(t.X)
		right := flattenToParsedText(t.Y)
		values := make([]ast.Expr, 0, len(left.Values)+len(right.Values)+1)
		if left != nil {
			values = append(values, left.Values...)
		}
		values = append(values, &ast.TextSpace{Value: " "})
		if right != nil {
			values = append(values, right.Values...)
		}
		return &ast.ParsedText{Values: values}
	default:
		// An identifier or number used directly as an author list; render it
		// to plain text and wrap it as a single-word value.
		return &ast.ParsedText{Values: []ast.Expr{&ast.Text{Value: bibtexrender.String(x)}}}
	}
}

// PersonFromAST converts a single parsed ast.Author into a Person.
func PersonFromAST(a *ast.Author) Person {
	return Person{Given: a.First.Value, Von: a.Prefix.Value, Family: a.Last.Value, Suffix: a.Suffix.Value}
}
