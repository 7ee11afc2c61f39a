package domain

import (
	m "mutate.dev/pkg/mutate/internal/model"
)

// tallyStates counts patches per state. Every state is present in the
// result, zero or not.
func tallyStates(patches []m.Patch) m.StateCounts {
	counts := m.StateCounts{
		m.StateIncomplete: 0,
		m.StateSurvived:   0,
		m.StateKilled:     0,
		m.StateError:      0,
	}

	for _, patch := range patches {
		counts[patch.State]++
	}

	return counts
}
