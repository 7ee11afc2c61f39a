package mutagens

// NewStdInserterMutator changes where inserters put elements. The second key
// is spelled `s#td::back_inserter` and so only matches that exact text.
func NewStdInserterMutator() Mutator {
	return newPatternMutator("stdInserter", "Changes the position where elements are inserted.", []string{"stl"},
		rule(`std::front_inserter`, `std::back_inserter`),
		rule(`s#td::back_inserter`, `std::front_inserter`),
	)
}

// NewStdRangePredicateMutator rotates the STL range predicates.
func NewStdRangePredicateMutator() Mutator {
	return newPatternMutator("stdRangePredicate", "Changes the semantics of an STL range predicate.", []string{"stl"},
		rule(`std::all_of`, `std::any_of`, `std::none_of`),
		rule(`std::any_of`, `std::all_of`, `std::none_of`),
		rule(`std::none_of`, `std::all_of`, `std::any_of`),
	)
}

// NewStdMinMaxMutator swaps std::min and std::max.
func NewStdMinMaxMutator() Mutator {
	return newPatternMutator("stdMinMax", "Swaps STL minimum by maximum calls.", []string{"stl", "artithmetic"},
		rule(`std::min`, `std::max`),
		rule(`std::max`, `std::min`),
	)
}

// NewIteratorRangeMutator shifts iterator range bounds.
func NewIteratorRangeMutator() Mutator {
	return newPatternMutator("iteratorRange", "Changes an iterator range.", []string{"iterators"},
		rule(`begin\(\)`, `end()`, `begin()+1`),
		rule(`end\(\)`, `end()-1`, `end()+1`),
		rule(`std::begin`, `std::end`),
		rule(`std::end`, `std::begin`),
	)
}
