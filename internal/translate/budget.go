package translate

import "unicode/utf8"

// TokenBudget sizes max_tokens from the input length in characters.
func TokenBudget(text string) int {
	n := utf8.RuneCountInString(text)
	switch {
	case n > 30000:
		return 4000
	case n > 15000:
		return 3000
	case n > 8000:
		return 2000
	case n > 2000:
		return 1000
	default:
		return 400
	}
}
