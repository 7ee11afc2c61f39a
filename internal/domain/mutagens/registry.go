package mutagens

import (
	"fmt"
	"sort"
)

// DefaultMutators returns one fresh instance of every built-in mutator in
// catalog order.
func DefaultMutators() []Mutator {
	return []Mutator{
		NewLineDeletionMutator(),
		NewLogicalOperatorMutator(),
		NewComparisonOperatorMutator(),
		NewIncDecOperatorMutator(),
		NewAssignmentOperatorMutator(),
		NewBooleanAssignmentOperatorMutator(),
		NewArithmeticOperatorMutator(),
		NewBooleanArithmeticOperatorMutator(),
		NewBooleanLiteralMutator(),
		NewStdInserterMutator(),
		NewStdRangePredicateMutator(),
		NewStdMinMaxMutator(),
		NewDecimalNumberLiteralMutator(),
		NewHexNumberLiteralMutator(),
		NewIteratorRangeMutator(),
	}
}

// GetMutators returns the catalog keyed by mutator id. Callers may extend the
// returned map with their own Mutator implementations.
func GetMutators() map[string]Mutator {
	mutators := DefaultMutators()
	byID := make(map[string]Mutator, len(mutators))

	for _, mutator := range mutators {
		byID[mutator.ID()] = mutator
	}

	return byID
}

// IDs returns the sorted ids of the built-in mutators.
func IDs() []string {
	mutators := GetMutators()
	ids := make([]string, 0, len(mutators))

	for id := range mutators {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Lookup resolves ids against the catalog, preserving catalog order. No ids
// selects every built-in.
func Lookup(ids ...string) ([]Mutator, error) {
	if len(ids) == 0 {
		return DefaultMutators(), nil
	}

	wanted := make(map[string]bool, len(ids))
	known := GetMutators()

	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("unknown mutator %q", id)
		}

		wanted[id] = true
	}

	selected := make([]Mutator, 0, len(wanted))

	for _, mutator := range DefaultMutators() {
		if wanted[mutator.ID()] {
			selected = append(selected, mutator)
		}
	}

	return selected, nil
}
