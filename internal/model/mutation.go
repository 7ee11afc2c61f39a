package model

// Replacement is one proposed edit to a single source line. Columns are byte
// offsets into the line; EndCol is exclusive.
type Replacement struct {
	StartCol int
	EndCol   int
	OldVal   string
	// NewVal is nil when the edit deletes the matched text (the whole line
	// for line deletion).
	NewVal *string
}

// IsDeletion reports whether the replacement carries the deletion marker.
func (r Replacement) IsDeletion() bool {
	return r.NewVal == nil
}

// Apply returns line with the replacement applied.
func (r Replacement) Apply(line string) string {
	if r.NewVal == nil {
		return line[:r.StartCol] + line[r.EndCol:]
	}

	return line[:r.StartCol] + *r.NewVal + line[r.EndCol:]
}

// NewReplacement builds a Replacement with a literal new value.
func NewReplacement(start, end int, oldVal, newVal string) Replacement {
	return Replacement{StartCol: start, EndCol: end, OldVal: oldVal, NewVal: &newVal}
}
