package tokenizer

import (
	"fmt"

	"github.com/wbrown/hf_bpe"
	"github.com/wbrown/hf_bpe/resources"
	"github.com/wbrown/hf_bpe/types"
)

// bpeBackend runs the in-tree BPE engine.
type bpeBackend struct {
	name    string
	encoder *hf_bpe.BPEEncoder
}

func (b *bpeBackend) Name() string {
	return b.name
}

func (b *bpeBackend) Encode(text string) (types.Tokens, error) {
	return b.encoder.Encode(text), nil
}

func (b *bpeBackend) Decode(tokens types.Tokens) string {
	return b.encoder.Decode(tokens)
}

func (b *bpeBackend) TokenToID(token string) (types.Token, bool) {
	return b.encoder.TokenToID(token)
}

func (b *bpeBackend) IDToToken(id types.Token) (string, bool) {
	return b.encoder.IDToToken(id)
}

func (b *bpeBackend) VocabSize() int {
	return b.encoder.VocabSize()
}

// NewByteLevelBPE builds a byte-level BPE backend out of `vocab.json` and
// `merges.txt`, the GPT-2 style files the BART family ships.
func NewByteLevelBPE(cfg SlowConfig) (Backend, error) {
	vocab, haveVocab := cfg.Bytes(VocabFile)
	merges, haveMerges := cfg.Bytes(MergesFile)
	if !haveVocab || !haveMerges {
		return nil, fmt.Errorf("%w: byte-level BPE needs `%s` and `%s`",
			ErrMissingFiles, cfg.FileNames[VocabFile],
			cfg.FileNames[MergesFile])
	}
	var lstrip []string
	if cfg.Specials.Mask != "" {
		lstrip = []string{cfg.Specials.Mask}
	}
	encoder, err := hf_bpe.NewBPEEncoderFromBytes(vocab, merges,
		hf_bpe.EncoderConfig{
			Mode:           hf_bpe.ModeByteLevel,
			AddPrefixSpace: cfg.AddPrefixSpace,
			Specials:       cfg.Specials.All(),
			LStripSpecials: lstrip,
			UnkToken:       cfg.Specials.Unk,
		})
	if err != nil {
		return nil, err
	}
	return &bpeBackend{name: "byte-level BPE", encoder: encoder}, nil
}

// NewSentencePieceBPE builds a backend from a sentencepiece BPE model,
// converting it into a vocabulary and merge list first.
func NewSentencePieceBPE(cfg SlowConfig) (Backend, error) {
	model, ok := cfg.Bytes(SentencePieceFile)
	if !ok {
		return nil, fmt.Errorf("%w: sentencepiece BPE needs `%s`",
			ErrMissingFiles, cfg.FileNames[SentencePieceFile])
	}
	converted, err := resources.ConvertSentencepiece(model)
	if err != nil {
		return nil, err
	}
	unk := converted.UnkPiece
	if unk == "" {
		unk = cfg.Specials.Unk
	}
	encoder, err := hf_bpe.NewBPEEncoder(converted.Vocab, converted.Merges,
		hf_bpe.EncoderConfig{
			Mode:           hf_bpe.ModeSentencePiece,
			AddPrefixSpace: true,
			Specials:       append(cfg.Specials.All(), converted.Specials...),
			UnkToken:       unk,
		})
	if err != nil {
		return nil, err
	}
	return &bpeBackend{name: "sentencepiece BPE", encoder: encoder}, nil
}
