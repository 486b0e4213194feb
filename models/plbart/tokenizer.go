// Package plbart is the PLBART tokenizer. It runs the BART engine
// unchanged and only swaps in its own file locations, positional limit and
// slow fallback.
package plbart

import (
	"github.com/wbrown/hf_bpe/models/bart"
	"github.com/wbrown/hf_bpe/tokenizer"
)

const (
	BaseModelID = "plbart-base"

	SlowTokenizerClass = "PLBartTokenizer"
	SentencePieceName  = "sentencepiece.bpe.model"
)

// Spec returns the BART tables with the PLBART entries in place.
func Spec() *tokenizer.Spec {
	spec := bart.Spec()
	spec.Name = "plbart"
	spec.VocabFilesNames = bart.VocabFilesNames()
	spec.PretrainedVocabFilesMap = map[string]map[string]string{
		tokenizer.VocabFile: {
			BaseModelID: "https://huggingface.co/plbart-base/resolve/main/vocab.json",
		},
		tokenizer.MergesFile: {
			BaseModelID: "https://huggingface.co/plbart-base/resolve/main/merges.txt",
		},
		tokenizer.TokenizerFile: {
			BaseModelID: "https://huggingface.co/plbart-base/resolve/main/tokenizer.json",
		},
	}
	spec.MaxModelInputSizes = map[string]int{
		BaseModelID: 1024,
	}
	spec.SlowTokenizerClass = SlowTokenizerClass
	spec.SlowVocabFilesNames = map[string]string{
		tokenizer.SentencePieceFile: SentencePieceName,
	}
	spec.Slow = tokenizer.FirstOf(tokenizer.NewByteLevelBPE,
		tokenizer.NewSentencePieceBPE)
	return spec
}

func NewFromFiles(files map[string]string, opts ...tokenizer.Option) (
	*tokenizer.Fast, error) {
	return tokenizer.NewFromFiles(Spec(), files, opts...)
}

// FromPretrained loads `plbart-base`, any hub identifier, a URL or a local
// directory.
func FromPretrained(id string, opts ...tokenizer.Option) (*tokenizer.Fast,
	error) {
	return tokenizer.FromPretrained(Spec(), id, opts...)
}
