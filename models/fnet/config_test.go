package fnet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/hf_bpe/config"
	"github.com/wbrown/hf_bpe/resources"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "fnet", c.ModelType)
	assert.Equal(t, 32000, c.VocabSize)
	assert.Equal(t, 768, c.HiddenSize)
	assert.Equal(t, 12, c.NumHiddenLayers)
	assert.Equal(t, 3072, c.IntermediateSize)
	assert.Equal(t, "gelu", c.HiddenAct)
	assert.Equal(t, 0.1, c.HiddenDropoutProb)
	assert.Equal(t, 512, c.MaxPositionEmbeddings)
	assert.Equal(t, 4, c.TypeVocabSize)
	assert.Equal(t, 0.02, c.InitializerRange)
	assert.Equal(t, 1e-12, c.LayerNormEps)
	assert.False(t, c.UseTPUFourierOptimizations)
	assert.Equal(t, 512, c.TPUShortSeqLength)
	require.NotNil(t, c.PadTokenID)
	assert.Equal(t, 3, *c.PadTokenID)
	assert.Equal(t, 1, *c.BosTokenID)
	assert.Equal(t, 2, *c.EosTokenID)
	assert.Empty(t, c.Extra)
}

// singleFieldTests set one field to a non-default value, once through its
// option and once through its serialized key.
var singleFieldTests = []struct {
	Name   string
	Option Option
	Key    string
	Value  interface{}
	Apply  func(c *Config)
}{
	{"vocab_size", WithVocabSize(50000), "vocab_size", 50000,
		func(c *Config) { c.VocabSize = 50000 }},
	{"hidden_size", WithHiddenSize(1024), "hidden_size", 1024,
		func(c *Config) { c.HiddenSize = 1024 }},
	{"num_hidden_layers", WithNumHiddenLayers(24), "num_hidden_layers", 24,
		func(c *Config) { c.NumHiddenLayers = 24 }},
	{"intermediate_size", WithIntermediateSize(4096), "intermediate_size",
		4096, func(c *Config) { c.IntermediateSize = 4096 }},
	{"hidden_act", WithHiddenAct(ActReLU), "hidden_act", ActReLU,
		func(c *Config) { c.HiddenAct = ActReLU }},
	{"hidden_dropout_prob", WithHiddenDropoutProb(0.3),
		"hidden_dropout_prob", 0.3,
		func(c *Config) { c.HiddenDropoutProb = 0.3 }},
	{"max_position_embeddings", WithMaxPositionEmbeddings(1024),
		"max_position_embeddings", 1024,
		func(c *Config) { c.MaxPositionEmbeddings = 1024 }},
	{"type_vocab_size", WithTypeVocabSize(2), "type_vocab_size", 2,
		func(c *Config) { c.TypeVocabSize = 2 }},
	{"initializer_range", WithInitializerRange(0.05), "initializer_range",
		0.05, func(c *Config) { c.InitializerRange = 0.05 }},
	{"layer_norm_eps", WithLayerNormEps(1e-6), "layer_norm_eps", 1e-6,
		func(c *Config) { c.LayerNormEps = 1e-6 }},
	{"use_tpu_fourier_optimizations", WithUseTPUFourierOptimizations(true),
		"use_tpu_fourier_optimizations", true,
		func(c *Config) { c.UseTPUFourierOptimizations = true }},
	{"tpu_short_seq_length", WithTPUShortSeqLength(256),
		"tpu_short_seq_length", 256,
		func(c *Config) { c.TPUShortSeqLength = 256 }},
	{"pad_token_id", WithPadTokenID(0), "pad_token_id", 0,
		func(c *Config) { c.PadTokenID = intPtr(0) }},
	{"bos_token_id", WithBosTokenID(5), "bos_token_id", 5,
		func(c *Config) { c.BosTokenID = intPtr(5) }},
	{"eos_token_id", WithEosTokenID(6), "eos_token_id", 6,
		func(c *Config) { c.EosTokenID = intPtr(6) }},
}

func TestNewConfigSingleField(t *testing.T) {
	for _, test := range singleFieldTests {
		t.Run(test.Name, func(t *testing.T) {
			want := DefaultConfig()
			test.Apply(want)

			got := NewConfig(test.Option)
			if d := cmp.Diff(want, got); d != "" {
				t.Errorf("NewConfig mismatch (-want +got):\n%s", d)
			}

			fromMap, err := NewConfigFromMap(map[string]interface{}{
				test.Key: test.Value,
			})
			require.NoError(t, err)
			if d := cmp.Diff(want, fromMap); d != "" {
				t.Errorf("NewConfigFromMap mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestNewConfigFromMapFractionalInt(t *testing.T) {
	for _, key := range []string{"vocab_size", "pad_token_id"} {
		_, err := NewConfigFromMap(map[string]interface{}{key: 7.9})
		assert.ErrorIs(t, err, config.ErrInvalidOverride, key)
	}
	c, err := NewConfigFromMap(map[string]interface{}{"vocab_size": 8.0})
	require.NoError(t, err)
	assert.Equal(t, 8, c.VocabSize)

	_, err = NewConfigFromMap(map[string]interface{}{
		"vocab_size": json.Number("7.9"),
	})
	assert.ErrorIs(t, err, config.ErrInvalidOverride)
	// float fields still take fractions
	c, err = NewConfigFromMap(map[string]interface{}{
		"hidden_dropout_prob": 0.25,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.25, c.HiddenDropoutProb)
}

func TestNewConfigOptionsInOrder(t *testing.T) {
	c := NewConfig(
		WithNumHiddenLayers(24),
		WithNumHiddenLayers(6),
		WithPadTokenID(0),
		WithUseTPUFourierOptimizations(true),
		WithExtra("num_labels", 2),
	)
	assert.Equal(t, 6, c.NumHiddenLayers)
	assert.Equal(t, 0, *c.PadTokenID)
	assert.True(t, c.UseTPUFourierOptimizations)
	v, ok := c.Get("num_labels")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestNewConfigFromMap(t *testing.T) {
	c, err := NewConfigFromMap(map[string]interface{}{
		"hidden_act":           "relu",
		"tpu_short_seq_length": 128,
		"layer_norm_eps":       1e-5,
		"id2label":             map[string]interface{}{"0": "NEG"},
		"finetuning_task":      "sst2",
	})
	require.NoError(t, err)
	want := DefaultConfig()
	want.HiddenAct = ActReLU
	want.TPUShortSeqLength = 128
	want.LayerNormEps = 1e-5
	want.Extra = map[string]interface{}{
		"id2label":        map[string]interface{}{"0": "NEG"},
		"finetuning_task": "sst2",
	}
	if d := cmp.Diff(want, c); d != "" {
		t.Errorf("NewConfigFromMap mismatch (-want +got):\n%s", d)
	}
	v, ok := c.Get("finetuning_task")
	assert.True(t, ok)
	assert.Equal(t, "sst2", v)
}

func TestNewConfigFromMapTypeMismatch(t *testing.T) {
	_, err := NewConfigFromMap(map[string]interface{}{"vocab_size": "big"})
	assert.ErrorIs(t, err, config.ErrInvalidOverride)
}

func TestNoRangeValidation(t *testing.T) {
	c, err := NewConfigFromMap(map[string]interface{}{
		"hidden_dropout_prob": 7.5,
		"num_hidden_layers":   -1,
	})
	require.NoError(t, err)
	assert.Equal(t, 7.5, c.HiddenDropoutProb)
	assert.Equal(t, -1, c.NumHiddenLayers)
}

func TestWithOverridesLeavesReceiver(t *testing.T) {
	base := NewConfig(WithExtra("color", "red"))
	derived, err := base.WithOverrides(map[string]interface{}{
		"vocab_size":   1000,
		"pad_token_id": 0,
		"size":         "xl",
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, derived.VocabSize)
	assert.Equal(t, 0, *derived.PadTokenID)
	assert.Equal(t, "red", derived.Extra["color"])
	assert.Equal(t, "xl", derived.Extra["size"])

	assert.Equal(t, 32000, base.VocabSize)
	assert.Equal(t, 3, *base.PadTokenID)
	assert.Equal(t, map[string]interface{}{"color": "red"}, base.Extra)
}

func TestJSONRoundTrip(t *testing.T) {
	c := NewConfig(
		WithHiddenSize(512),
		WithExtra("architectures_note", "tiny"),
		WithExtra("labels", []interface{}{"a", "b"}),
	)
	c.Architectures = []string{"FNetForMaskedLM"}
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "tiny", flat["architectures_note"])
	assert.Equal(t, "fnet", flat["model_type"])
	assert.Equal(t, float64(512), flat["hidden_size"])

	decoded := &Config{}
	require.NoError(t, json.Unmarshal(data, decoded))
	if d := cmp.Diff(c, decoded); d != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", d)
	}
}

func TestToDiffMap(t *testing.T) {
	c := NewConfig(WithHiddenSize(256), WithExtra("color", "red"))
	want := map[string]interface{}{
		"model_type":  "fnet",
		"hidden_size": 256,
		"color":       "red",
	}
	if d := cmp.Diff(want, c.ToDiffMap()); d != "" {
		t.Errorf("ToDiffMap mismatch (-want +got):\n%s", d)
	}
	assert.Equal(t, map[string]interface{}{"model_type": "fnet"},
		DefaultConfig().ToDiffMap())
}

func TestFourierPath(t *testing.T) {
	assert.Equal(t, FourierFFT, DefaultConfig().FourierPath(128))
	tpu := NewConfig(WithUseTPUFourierOptimizations(true))
	assert.Equal(t, FourierDFTMatrix, tpu.FourierPath(512))
	assert.Equal(t, FourierDFTMatrix, tpu.FourierPath(4096))
	assert.Equal(t, FourierFFT, tpu.FourierPath(4097))
}

func TestArchiveMap(t *testing.T) {
	assert.Len(t, ArchiveMap, 2)
	assert.Equal(t,
		"https://huggingface.co/gchhablani/fnet-base/resolve/main/config.json",
		ArchiveMap["gchhablani/fnet-base"])
	assert.Equal(t,
		"https://huggingface.co/gchhablani/fnet-large/resolve/main/config.json",
		ArchiveMap["gchhablani/fnet-large"])
}

func TestSaveAndFromPretrainedLocal(t *testing.T) {
	dir := t.TempDir()
	c := NewConfig(WithNumHiddenLayers(2), WithExtra("note", "local"))
	require.NoError(t, c.Save(dir))
	_, statErr := os.Stat(filepath.Join(dir, config.ConfigName))
	require.NoError(t, statErr)

	loaded, err := FromPretrained(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.NumHiddenLayers)
	assert.Equal(t, "local", loaded.Extra["note"])
	assert.Equal(t, dir, loaded.NameOrPath)
}

func TestFromPretrainedRemote(t *testing.T) {
	body := `{"model_type": "fnet", "hidden_size": 1024,
		"num_hidden_layers": 24, "_name_or_path": "fnet-large"}`
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/config.json") {
				http.NotFound(w, r)
				return
			}
			http.ServeContent(w, r, "config.json", time.Time{},
				strings.NewReader(body))
		}))
	defer server.Close()

	c, err := FromPretrained(server.URL+"/models/fnet-large",
		resources.WithCacheDir(t.TempDir()),
		resources.WithClient(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, 1024, c.HiddenSize)
	assert.Equal(t, 24, c.NumHiddenLayers)
	assert.Equal(t, 32000, c.VocabSize)
	assert.Equal(t, "fnet-large", c.NameOrPath)
}

func TestRegistered(t *testing.T) {
	model, err := config.FromJSON([]byte(
		`{"model_type": "fnet", "type_vocab_size": 2}`))
	require.NoError(t, err)
	c, ok := model.(*Config)
	require.True(t, ok)
	assert.Equal(t, 2, c.TypeVocabSize)
	assert.Equal(t, 768, c.HiddenSize)
}
