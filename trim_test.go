package hf_bpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/hf_bpe/types"
)

// byteEncoder has one token per byte and no merges, so token counts are
// byte counts.
var byteEncoder *BPEEncoder

func init() {
	vocab := make(map[string]types.Token, 256)
	for b, r := range BytesToUnicode() {
		vocab[string(r)] = types.Token(b)
	}
	var err error
	if byteEncoder, err = NewBPEEncoder(vocab, nil, EncoderConfig{
		Specials: bartSpecials,
	}); err != nil {
		panic(err)
	}
}

type TrimTest struct {
	Input     string
	Direction TrimDirection
	Limit     uint
	Expected  string
}

const sent1 = "This is test sentence 1.  This is test sentence 2.  This is test sentence 3."
const lines = "line one\nline two\nline three"

var TrimSentencesTests = []TrimTest{
	{sent1, TrimTop, 30,
		" This is test sentence 3."},
	{sent1, TrimTop, 60,
		" This is test sentence 2.  This is test sentence 3."},
	{sent1, TrimTop, 80,
		sent1},
	{sent1, TrimBottom, 30,
		"This is test sentence 1."},
	{sent1, TrimBottom, 60,
		"This is test sentence 1.  This is test sentence 2."},
	{sent1, TrimBottom, 80,
		sent1},
	{sent1, TrimNone, 30,
		""},
}

var TrimNewlinesTests = []TrimTest{
	{lines, TrimTop, 12, "\nline three"},
	{lines, TrimBottom, 20, "line one\nline two\n"},
	{lines, TrimTop, 28, lines},
	{lines, TrimNone, 10, ""},
}

func TestByteEncoder_RoundTrip(t *testing.T) {
	encoded := byteEncoder.Encode(sent1)
	assert.Len(t, encoded, len(sent1))
	assert.Equal(t, sent1, byteEncoder.Decode(encoded))
}

func TestTrimSentences(t *testing.T) {
	for testIdx, test := range TrimSentencesTests {
		encoded := byteEncoder.Encode(test.Input)
		trimmed, err := TrimSentences(byteEncoder, encoded, test.Direction,
			test.Limit)
		require.NoError(t, err, testIdx)
		assert.Equal(t, test.Expected, byteEncoder.Decode(trimmed), testIdx)
	}
}

func TestTrimNewlines(t *testing.T) {
	for testIdx, test := range TrimNewlinesTests {
		encoded := byteEncoder.Encode(test.Input)
		trimmed, err := TrimNewlines(byteEncoder, encoded, test.Direction,
			test.Limit)
		require.NoError(t, err, testIdx)
		assert.Equal(t, test.Expected, byteEncoder.Decode(trimmed), testIdx)
	}
}

func TestTrimUnicode(t *testing.T) {
	encoded := byteEncoder.Encode("aé")
	require.Len(t, encoded, 3)
	assert.Equal(t, encoded, TrimUnicode(byteEncoder, encoded))
	assert.Equal(t, "a", byteEncoder.Decode(TrimUnicode(byteEncoder,
		encoded[:2])))
	assert.Empty(t, TrimUnicode(byteEncoder, encoded[1:2]))
}
