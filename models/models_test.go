package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/hf_bpe/config"
	"github.com/wbrown/hf_bpe/types"
)

func TestTokenizerSpec(t *testing.T) {
	assert.Equal(t, []string{"bart", "plbart"}, Families())
	spec, err := TokenizerSpec("plbart")
	require.NoError(t, err)
	assert.Equal(t, "PLBartTokenizer", spec.SlowTokenizerClass)
	_, err = TokenizerSpec("gpt2")
	assert.Error(t, err)
}

func TestLoadTokenizer(t *testing.T) {
	fast, err := LoadTokenizer("bart",
		filepath.Join("..", "tokenizer", "testdata"))
	require.NoError(t, err)
	defer fast.Close()
	assert.Equal(t, "sugarme/tokenizer", fast.BackendName())
	encoded, err := fast.Encode("hello world")
	require.NoError(t, err)
	// testdata enables add_prefix_space.
	assert.Equal(t, types.Tokens{0, 8, 15, 20, 2}, encoded)
}

func TestConfigTypesRegistered(t *testing.T) {
	assert.Contains(t, config.ModelTypes(), "fnet")
}
