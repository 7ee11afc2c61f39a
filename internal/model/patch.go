package model

// PatchState is the lifecycle state of a patch.
type PatchState string

const (
	// StateIncomplete marks a patch that has not been evaluated yet.
	StateIncomplete PatchState = "incomplete"
	// StateSurvived marks a mutant the pipeline did not detect.
	StateSurvived PatchState = "survived"
	// StateKilled marks a mutant some pipeline step detected.
	StateKilled PatchState = "killed"
	// StateError marks a patch whose diff could not be applied or reverted.
	StateError PatchState = "error"
)

// Terminal reports whether no further transition is allowed from s.
func (s PatchState) Terminal() bool {
	return s == StateSurvived || s == StateKilled || s == StateError
}

// Patch is one candidate mutation of a source file together with the project
// configuration needed to evaluate it.
type Patch struct {
	ID        int64
	Project   Project
	File      *File // nil makes the patch inert
	Diff      string
	MutatorID string
	Line      int
	State     PatchState
}

// StateCounts tallies patches per state.
type StateCounts map[PatchState]int

// Score returns killed / (killed + survived) as a fraction. Error and
// incomplete patches are not scored; with nothing scored the result is 1.
func (c StateCounts) Score() float64 {
	killed := c[StateKilled]
	total := killed + c[StateSurvived]

	if total == 0 {
		return 1.0
	}

	return float64(killed) / float64(total)
}
