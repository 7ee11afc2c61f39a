package mutagens

// NewComparisonOperatorMutator replaces comparison operators.
//
// The `<=` and `>=` rows keep the historical `' >  >= '` and `' >  <= '`
// tokens, so those rows propose four edits rather than five.
func NewComparisonOperatorMutator() Mutator {
	return newPatternMutator("comparisonOperator", "Replaces comparison operators.", []string{"operator", "comparison"},
		rule(` == `, ` != `, ` < `, ` > `, ` <= `, ` >= `),
		rule(` != `, ` == `, ` < `, ` > `, ` <= `, ` >= `),
		rule(` < `, ` == `, ` != `, ` > `, ` <= `, ` >= `),
		rule(` > `, ` == `, ` != `, ` < `, ` <= `, ` >= `),
		rule(` <= `, ` == `, ` != `, ` < `, ` > `+` >= `),
		rule(` >= `, ` == `, ` != `, ` < `, ` > `+` <= `),
	)
}
