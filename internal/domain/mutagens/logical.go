package mutagens

// NewLogicalOperatorMutator replaces logical operators.
func NewLogicalOperatorMutator() Mutator {
	return newPatternMutator("logicalOperator", "Replaces logical operators.", []string{"logical", "operator"},
		rule(` && `, ` || `),
		rule(` and `, ` or `),
		rule(` \|\| `, ` && `),
		rule(` or `, ` and `),
		rule(`!`, ``),
		rule(`not`, ``),
	)
}

// NewBooleanLiteralMutator swaps true and false.
func NewBooleanLiteralMutator() Mutator {
	return newPatternMutator("booleanLiteral", "Swaps the Boolean literals true and false.", []string{"logical", "literal"},
		rule(`true`, `false`),
		rule(`false`, `true`),
	)
}
