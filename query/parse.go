// Copyright (C) 2026 BUFR Query Contributors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedQuery is returned (wrapped) for any input that does not
// conform to the query grammar: unbalanced brackets, empty components, or
// non-uppercase identifiers.
var ErrMalformedQuery = errors.New("malformed query")

// Parse compiles a query string into its alternatives. A single input
// string yields more than one Query only when its subset selector lists
// several comma-separated concrete subset names, e.g. "NC003103,NC003104/...".
// Parse strips whitespace before tokenizing and rejects unbalanced
// brackets, empty components, and non-uppercase identifiers with
// ErrMalformedQuery.
func Parse(text string) ([]Query, error) {
	text = stripSpace(text)
	subsets, rest, err := splitSubsetSelector(text)
	if err != nil {
		return nil, err
	}
	path, err := parsePath(rest)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: query %q has no path components", ErrMalformedQuery, text)
	}
	out := make([]Query, 0, len(subsets))
	for _, s := range subsets {
		out = append(out, Query{
			Subset: s,
			Path:   path,
			Source: text,
		})
	}
	return out, nil
}

// splitSubsetSelector separates the leading subset-selector from the rest
// of the path text and expands a comma-separated selector into its
// alternatives.
func splitSubsetSelector(text string) (subsets []string, rest string, err error) {
	idx := strings.IndexByte(text, '/')
	if idx < 0 {
		return nil, "", fmt.Errorf("%w: %q is missing a path", ErrMalformedQuery, text)
	}
	sel := text[:idx]
	rest = text[idx:]
	if sel == AnySubset {
		return []string{AnySubset}, rest, nil
	}
	if sel == "" {
		return nil, "", fmt.Errorf("%w: %q has an empty subset selector", ErrMalformedQuery, text)
	}
	for _, name := range strings.Split(sel, ",") {
		if name == "" {
			return nil, "", fmt.Errorf("%w: %q has an empty subset name in selector list", ErrMalformedQuery, text)
		}
		if !isValidIdent(name) {
			return nil, "", fmt.Errorf("%w: subset name %q must be uppercase alphanumeric/underscore", ErrMalformedQuery, name)
		}
		subsets = append(subsets, name)
	}
	return subsets, rest, nil
}

// stripSpace removes all whitespace up front so that the subset selector
// and the path see the same "whitespace insignificant" treatment; the
// lexer's own stripping only covers the path portion.
func stripSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if !isSpace(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

// parsePath parses the '/' component+ portion of the grammar.
func parsePath(text string) ([]Component, error) {
	lx := newLexer(text)
	var path []Component
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			return path, nil
		}
		if tok.kind != tokSlash {
			return nil, fmt.Errorf("%w: expected '/' before component, got %v", ErrMalformedQuery, tok.kind)
		}
		comp, err := parseComponent(lx)
		if err != nil {
			return nil, err
		}
		path = append(path, comp)
	}
}

func parseComponent(lx *lexer) (Component, error) {
	tok, err := lx.next()
	if err != nil {
		return Component{}, err
	}
	if tok.kind != tokIdent {
		return Component{}, fmt.Errorf("%w: expected identifier, got %v", ErrMalformedQuery, tok.kind)
	}
	c := Component{Mnemonic: tok.text}

	save := lx.pos
	next, err := lx.next()
	if err != nil {
		return Component{}, err
	}
	if next.kind == tokLBracket {
		idx, err := parseIndex(lx)
		if err != nil {
			return Component{}, err
		}
		c.Index = idx
		save = lx.pos
		next, err = lx.next()
		if err != nil {
			return Component{}, err
		}
	}
	if next.kind == tokLBrace {
		filter, err := parseFilter(lx)
		if err != nil {
			return Component{}, err
		}
		c.Filter = filter
		return c, nil
	}
	lx.pos = save
	return c, nil
}

func parseIndex(lx *lexer) (int, error) {
	tok, err := lx.next()
	if err != nil {
		return 0, err
	}
	if tok.kind != tokInt || tok.num <= 0 {
		return 0, fmt.Errorf("%w: expected positive integer inside '[...]'", ErrMalformedQuery)
	}
	close, err := lx.next()
	if err != nil {
		return 0, err
	}
	if close.kind != tokRBracket {
		return 0, fmt.Errorf("%w: unbalanced '[' (missing ']')", ErrMalformedQuery)
	}
	return tok.num, nil
}

func parseFilter(lx *lexer) ([]int, error) {
	var out []int
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokInt || tok.num <= 0 {
			return nil, fmt.Errorf("%w: expected positive integer inside '{...}'", ErrMalformedQuery)
		}
		out = append(out, tok.num)
		sep, err := lx.next()
		if err != nil {
			return nil, err
		}
		switch sep.kind {
		case tokComma:
			continue
		case tokRBrace:
			return out, nil
		default:
			return nil, fmt.Errorf("%w: unbalanced '{' (missing '}')", ErrMalformedQuery)
		}
	}
}
