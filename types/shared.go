package types

type Token uint32
type Tokens []Token

const (
	TokenSize = 4
)

// GPTPair is a merge candidate as it appears in `merges.txt`.
type GPTPair struct {
	Left  string
	Right string
}

// Ints returns the tokens as a plain int slice, the form most third-party
// tokenizer backends exchange ids in.
func (tokens Tokens) Ints() []int {
	ints := make([]int, len(tokens))
	for idx, token := range tokens {
		ints[idx] = int(token)
	}
	return ints
}

// TokensFromInts is the reverse of Ints.
func TokensFromInts(ints []int) Tokens {
	tokens := make(Tokens, len(ints))
	for idx, id := range ints {
		tokens[idx] = Token(id)
	}
	return tokens
}
