package plbart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"github.com/wbrown/hf_bpe/models/bart"
	"github.com/wbrown/hf_bpe/tokenizer"
	"github.com/wbrown/hf_bpe/types"
	"google.golang.org/protobuf/proto"
)

var testdata = filepath.Join("..", "..", "tokenizer", "testdata")

func testFiles() map[string]string {
	return map[string]string{
		tokenizer.VocabFile:  filepath.Join(testdata, "vocab.json"),
		tokenizer.MergesFile: filepath.Join(testdata, "merges.txt"),
	}
}

func TestSpecTables(t *testing.T) {
	spec := Spec()
	assert.Equal(t, map[string]string{
		"vocab_file":     "vocab.json",
		"merges_file":    "merges.txt",
		"tokenizer_file": "tokenizer.json",
	}, spec.VocabFilesNames)
	assert.Equal(t, map[string]map[string]string{
		"vocab_file": {
			"plbart-base": "https://huggingface.co/plbart-base/resolve/main/vocab.json",
		},
		"merges_file": {
			"plbart-base": "https://huggingface.co/plbart-base/resolve/main/merges.txt",
		},
		"tokenizer_file": {
			"plbart-base": "https://huggingface.co/plbart-base/resolve/main/tokenizer.json",
		},
	}, spec.PretrainedVocabFilesMap)
	assert.Equal(t, map[string]int{"plbart-base": 1024},
		spec.MaxModelInputSizes)
	assert.Equal(t, "PLBartTokenizer", spec.SlowTokenizerClass)
	assert.NotNil(t, spec.Slow)
	assert.Equal(t, bart.SpecialTokens(), spec.SpecialTokens)
}

func TestSpecIsFresh(t *testing.T) {
	spec := Spec()
	spec.MaxModelInputSizes[BaseModelID] = 1
	spec.VocabFilesNames[tokenizer.VocabFile] = "other.json"
	size, ok := Spec().MaxInputSize(BaseModelID)
	assert.True(t, ok)
	assert.Equal(t, 1024, size)
	assert.Equal(t, "vocab.json", Spec().VocabFilesNames[tokenizer.VocabFile])
	_, ok = bart.Spec().MaxInputSize(BaseModelID)
	assert.False(t, ok)
}

func TestResolveURLs(t *testing.T) {
	urls := Spec().ResolveURLs(BaseModelID)
	assert.Equal(t, "https://huggingface.co/plbart-base/resolve/main/vocab.json",
		urls[tokenizer.VocabFile])
	assert.Equal(t,
		"https://huggingface.co/plbart-base/resolve/main/tokenizer.json",
		urls[tokenizer.TokenizerFile])

	urls = Spec().ResolveURLs("uclanlp/plbart-python-en_XX")
	assert.Equal(t,
		"https://huggingface.co/uclanlp/plbart-python-en_XX/resolve/main/merges.txt",
		urls[tokenizer.MergesFile])
}

func fastFiles() map[string]string {
	files := testFiles()
	files[tokenizer.TokenizerFile] = filepath.Join(testdata, "tokenizer.json")
	return files
}

func TestAliasMatchesBart(t *testing.T) {
	backends := map[string]map[string]string{
		"byte-level BPE":    testFiles(),
		"sugarme/tokenizer": fastFiles(),
	}
	for backendName, files := range backends {
		t.Run(backendName, func(t *testing.T) {
			alias, err := NewFromFiles(files)
			require.NoError(t, err)
			defer alias.Close()
			base, err := bart.NewFromFiles(files)
			require.NoError(t, err)
			defer base.Close()
			require.Equal(t, backendName, alias.BackendName())
			require.Equal(t, backendName, base.BackendName())

			assert.Equal(t, base.VocabSize(), alias.VocabSize())
			assert.Equal(t, base.ModelMaxLength(), alias.ModelMaxLength())
			for _, text := range []string{"hello world", "hello", " world",
				"hello <mask>", "hello!", "<s>hello</s>", ""} {
				want, err := base.Encode(text)
				require.NoError(t, err)
				got, err := alias.Encode(text)
				require.NoError(t, err)
				assert.Equal(t, want, got, text)
				assert.Equal(t, base.Decode(want, false),
					alias.Decode(got, false))
				assert.Equal(t, base.Decode(want, true), alias.Decode(got, true))
			}
			want, err := base.EncodePair("hello", "world")
			require.NoError(t, err)
			got, err := alias.EncodePair("hello", "world")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestFastBackendMask(t *testing.T) {
	fast, err := NewFromFiles(fastFiles())
	require.NoError(t, err)
	defer fast.Close()
	require.Equal(t, "sugarme/tokenizer", fast.BackendName())
	encoded, err := fast.Encode("hello <mask>")
	require.NoError(t, err)
	assert.Equal(t, types.Tokens{0, 15, 21, 2}, encoded)
}

func TestEncodeDecode(t *testing.T) {
	fast, err := NewFromFiles(testFiles())
	require.NoError(t, err)
	defer fast.Close()

	encoded, err := fast.Encode("hello world")
	require.NoError(t, err)
	assert.Equal(t, types.Tokens{0, 15, 20, 2}, encoded)
	assert.Equal(t, "<s>hello world</s>", fast.Decode(encoded, false))
	assert.Equal(t, "hello world", fast.Decode(encoded, true))
	assert.Equal(t, "byte-level BPE", fast.BackendName())
}

func spmPiece(text string,
	kind sentencepiece.ModelProto_SentencePiece_Type) *sentencepiece.ModelProto_SentencePiece {
	return &sentencepiece.ModelProto_SentencePiece{
		Piece: proto.String(text),
		Score: proto.Float32(0),
		Type:  kind.Enum(),
	}
}

func TestSentencePieceFallback(t *testing.T) {
	normal := sentencepiece.ModelProto_SentencePiece_NORMAL
	model, err := proto.Marshal(&sentencepiece.ModelProto{
		Pieces: []*sentencepiece.ModelProto_SentencePiece{
			spmPiece("<unk>", sentencepiece.ModelProto_SentencePiece_UNKNOWN),
			spmPiece("<s>", sentencepiece.ModelProto_SentencePiece_CONTROL),
			spmPiece("</s>", sentencepiece.ModelProto_SentencePiece_CONTROL),
			spmPiece("<0x21>", sentencepiece.ModelProto_SentencePiece_BYTE),
			spmPiece("▁", normal),
			spmPiece("h", normal),
			spmPiece("i", normal),
			spmPiece("▁h", normal),
			spmPiece("▁hi", normal),
		},
	})
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SentencePieceName),
		model, 0644))

	fast, err := FromPretrained(dir)
	require.NoError(t, err)
	defer fast.Close()
	assert.Equal(t, "sentencepiece BPE", fast.BackendName())

	encoded, err := fast.Encode("hi hi!")
	require.NoError(t, err)
	assert.Equal(t, types.Tokens{1, 8, 8, 3, 2}, encoded)
	assert.Equal(t, "hi hi!", fast.Decode(encoded, true))
}

func TestNoFiles(t *testing.T) {
	_, err := FromPretrained(t.TempDir())
	assert.ErrorIs(t, err, tokenizer.ErrNoBackend)
}
