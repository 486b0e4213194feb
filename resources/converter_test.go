package resources

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"github.com/wbrown/hf_bpe/types"
	"google.golang.org/protobuf/proto"
)

func piece(text string,
	kind sentencepiece.ModelProto_SentencePiece_Type) *sentencepiece.ModelProto_SentencePiece {
	return &sentencepiece.ModelProto_SentencePiece{
		Piece: proto.String(text),
		Score: proto.Float32(0),
		Type:  kind.Enum(),
	}
}

func testModelBytes(t *testing.T) []byte {
	normal := sentencepiece.ModelProto_SentencePiece_NORMAL
	model := &sentencepiece.ModelProto{
		Pieces: []*sentencepiece.ModelProto_SentencePiece{
			piece("<unk>", sentencepiece.ModelProto_SentencePiece_UNKNOWN),
			piece("<s>", sentencepiece.ModelProto_SentencePiece_CONTROL),
			piece("</s>", sentencepiece.ModelProto_SentencePiece_CONTROL),
			piece("<0x21>", sentencepiece.ModelProto_SentencePiece_BYTE),
			piece("▁", normal),
			piece("h", normal),
			piece("i", normal),
			piece("▁h", normal),
			piece("▁hi", normal),
			piece("h", normal),
		},
	}
	data, err := proto.Marshal(model)
	require.NoError(t, err)
	return data
}

func TestConvertSentencepiece(t *testing.T) {
	converted, err := ConvertSentencepiece(testModelBytes(t))
	require.NoError(t, err)
	assert.Len(t, converted.Vocab, 9)
	assert.Equal(t, 1, converted.Duplicates)
	assert.Equal(t, types.Token(8), converted.Vocab["▁hi"])
	assert.Equal(t, types.Token(3), converted.Vocab["<0x21>"])
	assert.Equal(t, "<unk>", converted.UnkPiece)
	assert.Equal(t, []string{"<unk>", "<s>", "</s>"}, converted.Specials)
	assert.Equal(t, []types.GPTPair{
		{Left: "▁", Right: "h"},
		{Left: "▁h", Right: "i"},
	}, converted.Merges)
	assert.Equal(t, "#version: 0.2\n▁ h\n▁h i\n",
		string(converted.MergesText()))
}

func TestConvertSentencepieceGarbage(t *testing.T) {
	_, err := ConvertSentencepiece([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestConvertSentencepieceFile(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "sentencepiece.bpe.model")
	require.NoError(t, os.WriteFile(modelPath, testModelBytes(t), 0644))

	_, err := ConvertSentencepieceFile(modelPath, dir)
	require.NoError(t, err)

	vocabJson, err := os.ReadFile(filepath.Join(dir, "vocab.json"))
	require.NoError(t, err)
	var vocab map[string]int
	require.NoError(t, json.Unmarshal(vocabJson, &vocab))
	assert.Equal(t, 7, vocab["▁h"])

	specials, err := os.ReadFile(filepath.Join(dir, "specials.txt"))
	require.NoError(t, err)
	assert.Equal(t, "<unk>\n<s>\n</s>", string(specials))
}
