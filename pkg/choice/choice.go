// Package choice holds small generic selection helpers.
package choice

// Ternary returns isTrue when condition holds, otherwise isFalse.
func Ternary[T any](condition bool, isTrue, isFalse T) T {
	if condition {
		return isTrue
	}

	return isFalse
}

// FuncTernary is Ternary for values that should only be built when chosen.
func FuncTernary[T any](condition bool, isTrue, isFalse func() T) T {
	if condition {
		return isTrue()
	}

	return isFalse()
}
