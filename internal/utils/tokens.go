package utils

// CountTokens estimates the number of tokens in text at roughly four
// characters per token. Non-empty text is at least one token.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// FitsTokenBudget reports whether text fits within limit estimated tokens.
// A non-positive limit means unlimited.
func FitsTokenBudget(text string, limit int) bool {
	return limit <= 0 || CountTokens(text) <= limit
}
