package tokenizer

import "strings"

var cleanupReplacer = strings.NewReplacer(
	" .", ".",
	" ?", "?",
	" !", "!",
	" ,", ",",
	" ' ", "'",
	" n't", "n't",
	" 'm", "'m",
	" 's", "'s",
	" 've", "'ve",
	" 're", "'re",
)

// CleanUpTokenization removes the spaces word-level tokenizers leave
// before punctuation and English contractions.
func CleanUpTokenization(text string) string {
	return cleanupReplacer.Replace(text)
}
