package prompt

import "unicode/utf8"

// TokenCounter estimates how many model tokens a text occupies.
type TokenCounter interface {
	CountTokens(text string) int
}

// ApproxCounter assumes roughly four characters per token. It is used when
// no exact encoder is available.
type ApproxCounter struct{}

// CountTokens implements TokenCounter.
func (ApproxCounter) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
