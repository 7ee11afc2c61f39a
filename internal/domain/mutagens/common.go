// Package mutagens provides the line-oriented mutator catalog.
//
// Every mutator is a pure function of one source line. Detection is text
// based rather than syntax based, so a mutator may also fire inside comments
// or multi-line string literals.
package mutagens

import (
	"regexp"

	m "mutate.dev/pkg/mutate/internal/model"
)

// Mutator proposes candidate edits for a single source line.
type Mutator interface {
	ID() string
	Description() string
	Tags() []string
	FindMutations(line string) []m.Replacement
}

type info struct {
	id          string
	description string
	tags        []string
}

func (i info) ID() string          { return i.id }
func (i info) Description() string { return i.description }
func (i info) Tags() []string      { return append([]string(nil), i.tags...) }

var stringLiteralPattern = regexp.MustCompile(`".*?"`)

// StringLiteralGuard records the double-quoted spans of a line. The scan is
// not escape aware: `"a\"b"` yields the span `"a\"`.
type StringLiteralGuard struct {
	spans [][]int
}

// NewStringLiteralGuard scans line for quoted spans.
func NewStringLiteralGuard(line string) StringLiteralGuard {
	return StringLiteralGuard{spans: stringLiteralPattern.FindAllStringIndex(line, -1)}
}

// Contains reports whether index lies strictly between the start and end
// offsets of any quoted span.
func (g StringLiteralGuard) Contains(index int) bool {
	for _, span := range g.spans {
		if span[0] < index && index < span[1] {
			return true
		}
	}

	return false
}

type patternRule struct {
	pattern      *regexp.Regexp
	replacements []string
}

// rule is a convenience constructor keeping the catalog tables readable.
func rule(expr string, replacements ...string) patternRule {
	return patternRule{pattern: regexp.MustCompile(expr), replacements: replacements}
}

// simplePattern maps token patterns to ordered replacement tokens. Rule order
// is preserved so the emitted candidates are deterministic.
type simplePattern []patternRule

func (p simplePattern) mutate(line string) []m.Replacement {
	guard := NewStringLiteralGuard(line)
	result := make([]m.Replacement, 0)

	for _, r := range p {
		for _, loc := range r.pattern.FindAllStringIndex(line, -1) {
			if guard.Contains(loc[0]) {
				continue
			}

			oldVal := line[loc[0]:loc[1]]

			for _, replacement := range r.replacements {
				if replacement == oldVal {
					continue
				}

				result = append(result, m.NewReplacement(loc[0], loc[1], oldVal, replacement))
			}
		}
	}

	return result
}

type patternMutator struct {
	info
	pattern simplePattern
}

func (pm patternMutator) FindMutations(line string) []m.Replacement {
	return pm.pattern.mutate(line)
}

func newPatternMutator(id, description string, tags []string, rules ...patternRule) patternMutator {
	return patternMutator{
		info:    info{id: id, description: description, tags: tags},
		pattern: simplePattern(rules),
	}
}
