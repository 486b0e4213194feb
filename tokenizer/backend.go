package tokenizer

import (
	"errors"
	"fmt"

	"github.com/wbrown/hf_bpe/resources"
	"github.com/wbrown/hf_bpe/types"
)

var (
	ErrNoBackend    = errors.New("no tokenizer backend available")
	ErrMissingFiles = errors.New("tokenizer files missing")
)

// Backend is the tokenization algorithm behind Fast. Encode turns special
// tokens found in the text into their ids and applies the prefix space,
// but never adds sequence delimiters. Decode renders specials literally.
type Backend interface {
	Name() string
	Encode(text string) (types.Tokens, error)
	Decode(tokens types.Tokens) string
	TokenToID(token string) (types.Token, bool)
	IDToToken(id types.Token) (string, bool)
	VocabSize() int
}

// SlowConfig is what a SlowFactory gets to build a backend from.
type SlowConfig struct {
	Files          resources.Resources
	FileNames      map[string]string
	Specials       SpecialTokens
	AddPrefixSpace bool
}

// Bytes returns the contents of the file of the given kind.
func (cfg SlowConfig) Bytes(kind string) ([]byte, bool) {
	name, ok := cfg.FileNames[kind]
	if !ok {
		return nil, false
	}
	return cfg.Files.Bytes(name)
}

// SlowFactory builds the fallback backend used when the fast one cannot
// be loaded.
type SlowFactory func(cfg SlowConfig) (Backend, error)

// FirstOf tries each factory in order and returns the first backend built.
func FirstOf(factories ...SlowFactory) SlowFactory {
	return func(cfg SlowConfig) (Backend, error) {
		var errs []error
		for _, factory := range factories {
			backend, err := factory(cfg)
			if err == nil {
				return backend, nil
			}
			errs = append(errs, err)
		}
		if len(errs) == 0 {
			return nil, fmt.Errorf("%w: no slow factory", ErrMissingFiles)
		}
		return nil, errors.Join(errs...)
	}
}
