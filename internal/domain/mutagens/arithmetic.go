package mutagens

// NewIncDecOperatorMutator swaps increment and decrement.
func NewIncDecOperatorMutator() Mutator {
	return newPatternMutator("incDecOperator", "Swaps increment and decrement operators.", []string{"operator", "artithmetic"},
		rule(`\+\+`, `--`),
		rule(`--`, `++`),
	)
}

// NewArithmeticOperatorMutator replaces binary arithmetic operators.
func NewArithmeticOperatorMutator() Mutator {
	return newPatternMutator("arithmeticOperator", "Replaces arithmetic operators.", []string{"operator", "artithmetic"},
		rule(` \+ `, ` - `, ` * `, ` / `, ` % `),
		rule(` - `, ` + `, ` * `, ` / `, ` % `),
		rule(` \* `, ` + `, ` - `, ` / `, ` % `),
		rule(` / `, ` + `, ` - `, ` * `, ` % `),
		rule(` % `, ` + `, ` - `, ` * `, ` / `),
	)
}

// NewBooleanArithmeticOperatorMutator replaces bitwise operators. The ` ^ `
// key is a regexp anchor and never matches.
func NewBooleanArithmeticOperatorMutator() Mutator {
	return newPatternMutator("booleanArithmeticOperator", "Replaces Boolean arithmetic operators.", []string{"operator", "logical"},
		rule(` & `, ` | `, ` ^ `, ` << `, ` >> `),
		rule(` \| `, ` & `, ` ^ `, ` << `, ` >> `),
		rule(` ^ `, ` & `, ` | `, ` << `, ` >> `),
		rule(` << `, ` & `, ` | `, ` ^ `, ` >> `),
		rule(` >> `, ` & `, ` | `, ` ^ `, ` << `),
	)
}
