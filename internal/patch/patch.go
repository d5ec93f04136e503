// Package patch mutates plain JSON document trees at the locations
// matched by a compiled path. Mutations work on the decoded form a
// fetched document has: map[string]any, []any and scalars.
package patch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/theory/jsonpath"
	"github.com/theory/jsonpath/spec"
)

// ErrNotList reports an append whose target is not a list.
var ErrNotList = errors.New("append target is not a list")

// SetAll writes val at every location matched by p. It returns the
// possibly replaced root and the number of locations written.
func SetAll(p *jsonpath.Path, root, val any) (any, int, error) {
	matches, err := locate(p, root)
	if err != nil {
		return root, 0, err
	}
	for _, m := range matches {
		root = setAt(root, m.steps, val)
	}
	return root, len(matches), nil
}

// RemoveAll deletes every location matched by p. Locations are applied
// deepest first so removing list elements never shifts a later match.
func RemoveAll(p *jsonpath.Path, root any) (any, int, error) {
	matches, err := locate(p, root)
	if err != nil {
		return root, 0, err
	}
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	for _, m := range matches {
		root = removeAt(root, m.steps)
	}
	return root, len(matches), nil
}

// AppendAll appends val to every list matched by p. When any match is
// not a list it fails before mutating anything.
func AppendAll(p *jsonpath.Path, root, val any) (any, int, error) {
	matches, err := locate(p, root)
	if err != nil {
		return root, 0, err
	}
	for _, m := range matches {
		if _, ok := m.node.([]any); !ok {
			return root, 0, fmt.Errorf("%w: %T", ErrNotList, m.node)
		}
	}
	for _, m := range matches {
		root = appendAt(root, m.steps, val)
	}
	return root, len(matches), nil
}

// Length measures a value with length() semantics: member count for
// maps, element count for lists, rune count for strings. The second
// result is false for values that have no length.
func Length(v any) (int, bool) {
	switch t := v.(type) {
	case map[string]any:
		return len(t), true
	case []any:
		return len(t), true
	case string:
		return utf8.RuneCountInString(t), true
	}
	return 0, false
}

// step is one selector of a normalized path.
type step struct {
	name    string
	index   int
	isIndex bool
}

type match struct {
	steps []step
	node  any
}

// locate resolves the matches of p in root as step sequences, sorted
// ascending with duplicates removed.
func locate(p *jsonpath.Path, root any) ([]match, error) {
	located := p.SelectLocated(root)
	matches := make([]match, 0, len(located))
	for _, ln := range located {
		steps, err := stepsOf(ln.Path)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match{steps: steps, node: ln.Node})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return compareSteps(matches[i].steps, matches[j].steps) < 0
	})
	deduped := matches[:0]
	for i, m := range matches {
		if i > 0 && compareSteps(matches[i-1].steps, m.steps) == 0 {
			continue
		}
		deduped = append(deduped, m)
	}
	return deduped, nil
}

func stepsOf(path spec.NormalizedPath) ([]step, error) {
	steps := make([]step, 0, len(path))
	for _, sel := range path {
		switch s := sel.(type) {
		case spec.Name:
			steps = append(steps, step{name: string(s)})
		case spec.Index:
			steps = append(steps, step{index: int(s), isIndex: true})
		default:
			return nil, fmt.Errorf("unsupported path selector %T", sel)
		}
	}
	return steps, nil
}

func compareSteps(a, b []step) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareStep(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func compareStep(a, b step) int {
	if a.isIndex != b.isIndex {
		if a.isIndex {
			return -1
		}
		return 1
	}
	if a.isIndex {
		switch {
		case a.index < b.index:
			return -1
		case a.index > b.index:
			return 1
		}
		return 0
	}
	return strings.Compare(a.name, b.name)
}

// setAt replaces the value at steps. Paths that no longer resolve are
// skipped, which makes applying overlapping matches safe.
func setAt(node any, steps []step, val any) any {
	if len(steps) == 0 {
		return val
	}
	head, rest := steps[0], steps[1:]
	switch c := node.(type) {
	case map[string]any:
		if head.isIndex {
			return node
		}
		child, ok := c[head.name]
		if !ok {
			return node
		}
		c[head.name] = setAt(child, rest, val)
	case []any:
		if !head.isIndex || head.index < 0 || head.index >= len(c) {
			return node
		}
		c[head.index] = setAt(c[head.index], rest, val)
	}
	return node
}

func removeAt(node any, steps []step) any {
	if len(steps) == 0 {
		return node
	}
	head, rest := steps[0], steps[1:]
	switch c := node.(type) {
	case map[string]any:
		if head.isIndex {
			return node
		}
		if len(rest) == 0 {
			delete(c, head.name)
			return node
		}
		child, ok := c[head.name]
		if !ok {
			return node
		}
		c[head.name] = removeAt(child, rest)
	case []any:
		if !head.isIndex || head.index < 0 || head.index >= len(c) {
			return node
		}
		if len(rest) == 0 {
			return append(c[:head.index], c[head.index+1:]...)
		}
		c[head.index] = removeAt(c[head.index], rest)
	}
	return node
}

func appendAt(node any, steps []step, val any) any {
	if len(steps) == 0 {
		if l, ok := node.([]any); ok {
			return append(l, val)
		}
		return node
	}
	head, rest := steps[0], steps[1:]
	switch c := node.(type) {
	case map[string]any:
		if head.isIndex {
			return node
		}
		child, ok := c[head.name]
		if !ok {
			return node
		}
		c[head.name] = appendAt(child, rest, val)
	case []any:
		if !head.isIndex || head.index < 0 || head.index >= len(c) {
			return node
		}
		c[head.index] = appendAt(c[head.index], rest, val)
	}
	return node
}
