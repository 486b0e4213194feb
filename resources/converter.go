package resources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"github.com/wbrown/hf_bpe/types"
	"google.golang.org/protobuf/proto"
)

// SentencePieceVocab is a sentencepiece BPE model flattened into the
// vocabulary and ranked merge list a BPE engine consumes.
type SentencePieceVocab struct {
	Vocab      map[string]types.Token
	Merges     []types.GPTPair
	Specials   []string
	UnkPiece   string
	Duplicates int
}

type mergeCandidate struct {
	pair   types.GPTPair
	merged types.Token
	left   types.Token
	right  types.Token
}

// ConvertSentencepiece decodes a serialized `sentencepiece.bpe.model` and
// derives its merge table: every split of a normal piece into two pieces
// that are both in the vocabulary is a merge, ranked by the id of the piece
// it produces.
func ConvertSentencepiece(modelBytes []byte) (*SentencePieceVocab, error) {
	var model sentencepiece.ModelProto
	if err := proto.Unmarshal(modelBytes, &model); err != nil {
		return nil, fmt.Errorf("unable to unmarshal sentencepiece model: %w",
			err)
	}
	pieces := model.GetPieces()
	converted := &SentencePieceVocab{
		Vocab:    make(map[string]types.Token, len(pieces)),
		Specials: make([]string, 0, 8),
	}
	normal := make([]string, 0, len(pieces))
	for pieceIdx, piece := range pieces {
		repr := piece.GetPiece()
		if _, dupe := converted.Vocab[repr]; dupe {
			converted.Duplicates++
			continue
		}
		converted.Vocab[repr] = types.Token(pieceIdx)
		switch piece.GetType() {
		case sentencepiece.ModelProto_SentencePiece_CONTROL,
			sentencepiece.ModelProto_SentencePiece_USER_DEFINED:
			converted.Specials = append(converted.Specials, repr)
		case sentencepiece.ModelProto_SentencePiece_UNKNOWN:
			converted.UnkPiece = repr
			converted.Specials = append(converted.Specials, repr)
		case sentencepiece.ModelProto_SentencePiece_NORMAL:
			normal = append(normal, repr)
		}
	}
	if converted.Duplicates > 0 {
		log.Printf("sentencepiece model has %d duplicate pieces, "+
			"keeping the first of each", converted.Duplicates)
	}

	candidates := make([]mergeCandidate, 0, len(normal)*2)
	for _, piece := range normal {
		runes := []rune(piece)
		for splitIdx := 1; splitIdx < len(runes); splitIdx++ {
			left := string(runes[:splitIdx])
			right := string(runes[splitIdx:])
			leftId, leftOk := converted.Vocab[left]
			rightId, rightOk := converted.Vocab[right]
			if !leftOk || !rightOk {
				continue
			}
			candidates = append(candidates, mergeCandidate{
				pair:   types.GPTPair{Left: left, Right: right},
				merged: converted.Vocab[piece],
				left:   leftId,
				right:  rightId,
			})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.merged != b.merged {
			return a.merged < b.merged
		}
		if a.left != b.left {
			return a.left < b.left
		}
		return a.right < b.right
	})
	converted.Merges = make([]types.GPTPair, len(candidates))
	for idx, candidate := range candidates {
		converted.Merges[idx] = candidate.pair
	}
	return converted, nil
}

// MergesText renders the merges in `merges.txt` form.
func (vocab *SentencePieceVocab) MergesText() []byte {
	var buf bytes.Buffer
	buf.WriteString("#version: 0.2\n")
	for _, pair := range vocab.Merges {
		buf.WriteString(pair.Left)
		buf.WriteByte(' ')
		buf.WriteString(pair.Right)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ConvertSentencepieceFile converts the model at modelPath and writes
// `vocab.json`, `merges.txt` and `specials.txt` into outputDir.
func ConvertSentencepieceFile(modelPath string, outputDir string) (
	*SentencePieceVocab, error) {
	modelBytes, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, err
	}
	converted, err := ConvertSentencepiece(modelBytes)
	if err != nil {
		return nil, err
	}
	vocabJson, err := json.Marshal(converted.Vocab)
	if err != nil {
		return nil, err
	}
	outputs := map[string][]byte{
		"vocab.json":   vocabJson,
		"merges.txt":   converted.MergesText(),
		"specials.txt": []byte(strings.Join(converted.Specials, "\n")),
	}
	for name, data := range outputs {
		if writeErr := os.WriteFile(filepath.Join(outputDir, name), data,
			0644); writeErr != nil {
			return nil, writeErr
		}
	}
	return converted, nil
}
