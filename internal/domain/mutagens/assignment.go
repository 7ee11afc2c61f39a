package mutagens

// NewAssignmentOperatorMutator replaces arithmetic assignment operators.
func NewAssignmentOperatorMutator() Mutator {
	return newPatternMutator("assignmentOperator", "Replaces assignment operators.", []string{"operator"},
		rule(` = `, ` += `, ` -= `, ` *= `, ` /= `, ` %= `),
		rule(` \+= `, ` = `, ` -= `, ` *= `, ` /= `, ` %= `),
		rule(` -= `, ` = `, ` += `, ` *= `, ` /= `, ` %= `),
		rule(` \*= `, ` = `, ` += `, ` -= `, ` /= `, ` %= `),
		rule(` /= `, ` = `, ` += `, ` -= `, ` *= `, ` %= `),
		rule(` %= `, ` = `, ` += `, ` -= `, ` *= `, ` /= `),
	)
}

// NewBooleanAssignmentOperatorMutator replaces bitwise assignment operators.
func NewBooleanAssignmentOperatorMutator() Mutator {
	return newPatternMutator("booleanAssignmentOperator", "Replaces Boolean assignment operators.", []string{"operator", "logical"},
		rule(` = `, ` &= `, ` |= `, ` ^= `, ` <<= `, ` >>= `),
		rule(` &= `, ` = `, ` |= `, ` ^= `, ` <<= `, ` >>= `),
		rule(` \|= `, ` = `, ` &= `, ` ^= `, ` <<= `, ` >>= `),
		rule(` ^= `, ` = `, ` &= `, ` |= `, ` <<= `, ` >>= `),
		rule(` <<= `, ` = `, ` &= `, ` |= `, ` ^= `, ` >>= `),
		rule(` >>= `, ` = `, ` &= `, ` |= `, ` ^= `, ` <<= `),
	)
}
