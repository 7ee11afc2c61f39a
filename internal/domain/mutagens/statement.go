package mutagens

import (
	"strings"

	m "mutate.dev/pkg/mutate/internal/model"
)

type lineDeletionMutator struct {
	info
}

// NewLineDeletionMutator returns the mutator that deletes a whole line.
func NewLineDeletionMutator() Mutator {
	return lineDeletionMutator{info{id: "lineDeletion", description: "Deletes a whole line.", tags: []string{"naive"}}}
}

// FindMutations always yields one candidate covering the line without its
// trailing newline, carrying the deletion marker.
func (lineDeletionMutator) FindMutations(line string) []m.Replacement {
	content := strings.TrimSuffix(line, "\n")
	content = strings.TrimSuffix(content, "\r")

	return []m.Replacement{{StartCol: 0, EndCol: len(content), OldVal: content}}
}
