package bart

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/hf_bpe/tokenizer"
	"github.com/wbrown/hf_bpe/types"
)

func TestSpecTables(t *testing.T) {
	spec := Spec()
	assert.Equal(t, "bart", spec.Name)
	assert.Equal(t, SlowTokenizerClass, spec.SlowTokenizerClass)
	assert.NotNil(t, spec.Slow)
	for _, id := range PretrainedIDs() {
		size, ok := spec.MaxInputSize(id)
		assert.True(t, ok, id)
		assert.Equal(t, 1024, size, id)
		assert.Equal(t,
			"https://huggingface.co/"+id+"/resolve/main/merges.txt",
			spec.PretrainedVocabFilesMap[tokenizer.MergesFile][id])
	}
	assert.Equal(t, "</s>", spec.SpecialTokens.Sep)
	assert.Equal(t, "<s>", spec.SpecialTokens.Cls)
}

func TestNewFromFiles(t *testing.T) {
	testdata := filepath.Join("..", "..", "tokenizer", "testdata")
	fast, err := NewFromFiles(map[string]string{
		tokenizer.VocabFile:  filepath.Join(testdata, "vocab.json"),
		tokenizer.MergesFile: filepath.Join(testdata, "merges.txt"),
	})
	require.NoError(t, err)
	defer fast.Close()

	encoded, err := fast.Encode("hello world")
	require.NoError(t, err)
	assert.Equal(t, types.Tokens{0, 15, 20, 2}, encoded)
	assert.Equal(t, "hello world", fast.Decode(encoded, true))
}
