// Package bart describes the BART tokenizer family: GPT-2 style
// byte-level BPE with RoBERTa's special tokens.
package bart

import "github.com/wbrown/hf_bpe/tokenizer"

const (
	Bos  = "<s>"
	Eos  = "</s>"
	Unk  = "<unk>"
	Pad  = "<pad>"
	Mask = "<mask>"

	SlowTokenizerClass = "BartTokenizer"
)

var pretrainedIDs = []string{
	"facebook/bart-base",
	"facebook/bart-large",
	"facebook/bart-large-mnli",
	"facebook/bart-large-cnn",
	"facebook/bart-large-xsum",
	"yjernite/bart_eli5",
}

// VocabFilesNames returns the file names the family reads.
func VocabFilesNames() map[string]string {
	return map[string]string{
		tokenizer.VocabFile:     "vocab.json",
		tokenizer.MergesFile:    "merges.txt",
		tokenizer.TokenizerFile: "tokenizer.json",
	}
}

// SpecialTokens are shared by every BART derived family.
func SpecialTokens() tokenizer.SpecialTokens {
	return tokenizer.SpecialTokens{
		Bos:  Bos,
		Eos:  Eos,
		Unk:  Unk,
		Sep:  Eos,
		Pad:  Pad,
		Cls:  Bos,
		Mask: Mask,
	}
}

// Spec returns a fresh copy of the BART lookup tables.
func Spec() *tokenizer.Spec {
	names := VocabFilesNames()
	maxSizes := make(map[string]int, len(pretrainedIDs))
	for _, id := range pretrainedIDs {
		maxSizes[id] = 1024
	}
	return &tokenizer.Spec{
		Name:                    "bart",
		VocabFilesNames:         names,
		PretrainedVocabFilesMap: tokenizer.HubFilesMap(names, pretrainedIDs...),
		MaxModelInputSizes:      maxSizes,
		SlowTokenizerClass:      SlowTokenizerClass,
		Slow:                    tokenizer.NewByteLevelBPE,
		SpecialTokens:           SpecialTokens(),
	}
}

func NewFromFiles(files map[string]string, opts ...tokenizer.Option) (
	*tokenizer.Fast, error) {
	return tokenizer.NewFromFiles(Spec(), files, opts...)
}

func FromPretrained(id string, opts ...tokenizer.Option) (*tokenizer.Fast,
	error) {
	return tokenizer.FromPretrained(Spec(), id, opts...)
}

// PretrainedIDs lists the checkpoints the tables know about.
func PretrainedIDs() []string {
	return append([]string(nil), pretrainedIDs...)
}

