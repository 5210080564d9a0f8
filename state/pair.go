package state

import "cmp"

type Pair[Ty1, Ty2 any] struct {
	V1 Ty1
	V2 Ty2
}

func MakePair[Ty1, Ty2 any](a Ty1, b Ty2) Pair[Ty1, Ty2] {
	return Pair[Ty1, Ty2]{a, b}
}

func MakeSortedPair[T cmp.Ordered](a, b T) Pair[T, T] {
	if a < b {
		return Pair[T, T]{a, b}
	}
	return Pair[T, T]{b, a}
}

// ComparePairs orders pairs by V1, then V2
func ComparePairs[T cmp.Ordered](a, b Pair[T, T]) int {
	if c := cmp.Compare(a.V1, b.V1); c != 0 {
		return c
	}
	return cmp.Compare(a.V2, b.V2)
}
