package chunker

import "strings"

// EstimateTokens gives a rough subword token count for budgeting chunks.
// It counts whitespace-separated words at about 1.33 tokens each.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
