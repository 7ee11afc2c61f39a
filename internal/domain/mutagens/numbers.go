package mutagens

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"

	m "mutate.dev/pkg/mutate/internal/model"
)

var (
	decimalLiteralPattern = regexp.MustCompile(`[^'"a-zA-Z_\\](-?[0-9]+\.?[0-9]*)[^'"a-zA-Z_]?`)
	hexLiteralPattern     = regexp.MustCompile(`0[xX][0-9A-Fa-f]+`)
)

// numberCandidate is one proposed literal value; key collapses equal values
// and order sorts them ascending.
type numberCandidate struct {
	key   string
	order *big.Float
	text  string
}

type decimalNumberLiteralMutator struct {
	info
}

// NewDecimalNumberLiteralMutator replaces decimal literals with v+1, v-1, -v
// and 0.
func NewDecimalNumberLiteralMutator() Mutator {
	return decimalNumberLiteralMutator{info{
		id:          "decimalNumberLiteral",
		description: "Replaces decimal number literals with different values.",
		tags:        []string{"numerical", "literal"},
	}}
}

func (decimalNumberLiteralMutator) FindMutations(line string) []m.Replacement {
	guard := NewStringLiteralGuard(line)
	result := make([]m.Replacement, 0)

	for _, loc := range decimalLiteralPattern.FindAllStringSubmatchIndex(line, -1) {
		if guard.Contains(loc[0]) {
			continue
		}

		start, end := loc[2], loc[3]
		oldVal := line[start:end]

		candidates, ok := decimalCandidates(oldVal)
		if !ok {
			continue
		}

		for _, c := range candidates {
			if c.text == oldVal {
				continue
			}

			result = append(result, m.NewReplacement(start, end, oldVal, c.text))
		}
	}

	return result
}

// decimalCandidates parses token with JSON number grammar, so forms like
// "5." or "007" are rejected.
func decimalCandidates(token string) ([]numberCandidate, bool) {
	if !json.Valid([]byte(token)) {
		return nil, false
	}

	if strings.Contains(token, ".") {
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, false
		}

		return floatCandidates(value), true
	}

	value, ok := new(big.Int).SetString(token, 10)
	if !ok {
		return nil, false
	}

	return intCandidates(value, func(v *big.Int) string { return v.String() }), true
}

type hexNumberLiteralMutator struct {
	info
}

// NewHexNumberLiteralMutator replaces hexadecimal literals with v+1, v-1, -v
// and 0, rendered back as hex.
func NewHexNumberLiteralMutator() Mutator {
	return hexNumberLiteralMutator{info{
		id:          "hexNumberLiteral",
		description: "Replaces hex number literals with different values.",
		tags:        []string{"numerical", "literal"},
	}}
}

func (hexNumberLiteralMutator) FindMutations(line string) []m.Replacement {
	guard := NewStringLiteralGuard(line)
	result := make([]m.Replacement, 0)

	for _, loc := range hexLiteralPattern.FindAllStringIndex(line, -1) {
		if guard.Contains(loc[0]) {
			continue
		}

		oldVal := line[loc[0]:loc[1]]

		value, ok := new(big.Int).SetString(oldVal[2:], 16)
		if !ok {
			continue
		}

		for _, c := range intCandidates(value, formatHex) {
			if c.text == oldVal {
				continue
			}

			result = append(result, m.NewReplacement(loc[0], loc[1], oldVal, c.text))
		}
	}

	return result
}

func formatHex(v *big.Int) string {
	return fmt.Sprintf("%#x", v)
}

func intCandidates(value *big.Int, render func(*big.Int) string) []numberCandidate {
	one := big.NewInt(1)
	values := []*big.Int{
		new(big.Int).Add(value, one),
		new(big.Int).Sub(value, one),
		new(big.Int).Neg(value),
		new(big.Int),
	}

	seen := map[string]bool{value.String(): true}
	candidates := make([]numberCandidate, 0, len(values))

	for _, v := range values {
		key := v.String()
		if seen[key] {
			continue
		}

		seen[key] = true
		candidates = append(candidates, numberCandidate{key: key, order: new(big.Float).SetInt(v), text: render(v)})
	}

	sortCandidates(candidates)

	return candidates
}

// floatCandidates keeps the first of numerically equal values, so for 1.0
// the zero candidate is the float 0.0 computed from v-1 rather than the
// integer 0.
func floatCandidates(value float64) []numberCandidate {
	type raw struct {
		v       float64
		integer bool
	}

	values := []raw{{value + 1, false}, {value - 1, false}, {-value, false}, {0, true}}
	candidates := make([]numberCandidate, 0, len(values))
	kept := make([]float64, 0, len(values))

	for _, r := range values {
		if r.v == value || containsFloat(kept, r.v) {
			continue
		}

		kept = append(kept, r.v)

		text := "0"
		if !r.integer {
			text = formatFloat(r.v)
		}

		candidates = append(candidates, numberCandidate{key: text, order: big.NewFloat(r.v), text: text})
	}

	sortCandidates(candidates)

	return candidates
}

func containsFloat(values []float64, v float64) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}

	return false
}

// formatFloat renders the shortest round-trip form, always with a fractional
// part or an exponent ("6.0", "0.25", "1e+16").
func formatFloat(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	text := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(text, ".") {
		text += ".0"
	}

	return text
}

func sortCandidates(candidates []numberCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].order.Cmp(candidates[j].order) < 0
	})
}
