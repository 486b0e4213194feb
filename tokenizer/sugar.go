package tokenizer

import (
	"fmt"
	"strings"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"github.com/wbrown/hf_bpe"
	"github.com/wbrown/hf_bpe/types"
)

// sugarBackend serves a `tokenizer.json` through sugarme/tokenizer. Special
// tokens are cut out of the text before it reaches the pipeline, and the
// prefix space is added here, so both follow the engine's settings rather
// than whatever the serialized pre-tokenizer says.
type sugarBackend struct {
	t           *tk.Tokenizer
	specials    *hf_bpe.RuneNode
	specialIDs  map[string]types.Token
	lstrip      map[string]bool
	prefixSpace bool
}

// NewSugarBackend loads the serialized fast tokenizer at path.
func NewSugarBackend(path string, specials SpecialTokens,
	addPrefixSpace bool) (backend Backend, err error) {
	// the loader panics on pipeline components it does not know
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("unsupported `%s`: %v", path, r)
		}
	}()
	t, loadErr := pretrained.FromFile(path)
	if loadErr != nil {
		return nil, fmt.Errorf("error loading `%s`: %w", path, loadErr)
	}
	s := &sugarBackend{
		t:           t,
		specialIDs:  make(map[string]types.Token, 8),
		lstrip:      make(map[string]bool, 1),
		prefixSpace: addPrefixSpace,
	}
	known := make([]string, 0, 8)
	for _, special := range specials.All() {
		if id, ok := s.TokenToID(special); ok {
			s.specialIDs[special] = id
			known = append(known, special)
		}
	}
	if _, ok := s.specialIDs[specials.Mask]; ok {
		s.lstrip[specials.Mask] = true
	}
	s.specials = hf_bpe.NewRuneTree(known)
	return s, nil
}

func (s *sugarBackend) Name() string {
	return "sugarme/tokenizer"
}

func (s *sugarBackend) Encode(text string) (types.Tokens, error) {
	segments := []hf_bpe.Segment{{Text: text}}
	if len(s.specialIDs) > 0 {
		segments = s.specials.Split(text, s.lstrip)
	}
	tokens := make(types.Tokens, 0, len(text)/3+1)
	for idx, seg := range segments {
		if seg.Special {
			tokens = append(tokens, s.specialIDs[seg.Text])
			continue
		}
		chunk := seg.Text
		if idx == 0 && s.prefixSpace && !strings.HasPrefix(chunk, " ") {
			chunk = " " + chunk
		}
		if chunk == "" {
			continue
		}
		ids, err := s.encode(chunk)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, ids...)
	}
	return tokens, nil
}

func (s *sugarBackend) encode(text string) (types.Tokens, error) {
	input := tk.NewSingleEncodeInput(tk.NewInputSequence(text))
	encoding, err := s.t.Encode(input, false)
	if err != nil {
		return nil, err
	}
	return types.TokensFromInts(encoding.GetIds()), nil
}

func (s *sugarBackend) Decode(tokens types.Tokens) string {
	return s.t.Decode(tokens.Ints(), false)
}

func (s *sugarBackend) TokenToID(token string) (types.Token, bool) {
	id, ok := s.t.TokenToId(token)
	if !ok || id < 0 {
		return 0, false
	}
	return types.Token(id), true
}

func (s *sugarBackend) IDToToken(id types.Token) (string, bool) {
	return s.t.IdToToken(int(id))
}

func (s *sugarBackend) VocabSize() int {
	return s.t.GetVocabSize(true)
}
