// Package fnet holds the hyperparameter record of the FNet encoder, which
// replaces self-attention with an unparameterized Fourier transform.
package fnet

import (
	"encoding/json"

	"github.com/wbrown/hf_bpe/config"
	"github.com/wbrown/hf_bpe/resources"
)

const ModelType = "fnet"

// Activation names accepted for HiddenAct.
const (
	ActGELU    = "gelu"
	ActReLU    = "relu"
	ActSELU    = "selu"
	ActGELUNew = "gelu_new"
)

// Fourier strategies reported by FourierPath.
const (
	FourierDFTMatrix = "dft_matrix"
	FourierFFT       = "fft"
)

// DFTMatrixMaxSeqLength is the longest sequence for which the TPU
// optimized path precomputes a DFT matrix instead of running an FFT.
const DFTMatrixMaxSeqLength = 4096

// ArchiveMap lists the published FNet configurations.
var ArchiveMap = map[string]string{
	"gchhablani/fnet-base": "https://huggingface.co/gchhablani/fnet-base" +
		"/resolve/main/config.json",
	"gchhablani/fnet-large": "https://huggingface.co/gchhablani/fnet-large" +
		"/resolve/main/config.json",
}

// Config is the FNet model configuration. The zero value is not useful;
// build one with DefaultConfig, NewConfig or NewConfigFromMap.
type Config struct {
	config.Pretrained          `mapstructure:",squash"`
	VocabSize                  int     `mapstructure:"vocab_size"`
	HiddenSize                 int     `mapstructure:"hidden_size"`
	NumHiddenLayers            int     `mapstructure:"num_hidden_layers"`
	IntermediateSize           int     `mapstructure:"intermediate_size"`
	HiddenAct                  string  `mapstructure:"hidden_act"`
	HiddenDropoutProb          float64 `mapstructure:"hidden_dropout_prob"`
	MaxPositionEmbeddings      int     `mapstructure:"max_position_embeddings"`
	TypeVocabSize              int     `mapstructure:"type_vocab_size"`
	InitializerRange           float64 `mapstructure:"initializer_range"`
	LayerNormEps               float64 `mapstructure:"layer_norm_eps"`
	UseTPUFourierOptimizations bool    `mapstructure:"use_tpu_fourier_optimizations"`
	TPUShortSeqLength          int     `mapstructure:"tpu_short_seq_length"`
}

func intPtr(v int) *int {
	return &v
}

// DefaultConfig returns the fnet-base configuration.
func DefaultConfig() *Config {
	return &Config{
		Pretrained: config.Pretrained{
			ModelType:  ModelType,
			PadTokenID: intPtr(3),
			BosTokenID: intPtr(1),
			EosTokenID: intPtr(2),
		},
		VocabSize:                  32000,
		HiddenSize:                 768,
		NumHiddenLayers:            12,
		IntermediateSize:           3072,
		HiddenAct:                  ActGELU,
		HiddenDropoutProb:          0.1,
		MaxPositionEmbeddings:      512,
		TypeVocabSize:              4,
		InitializerRange:           0.02,
		LayerNormEps:               1e-12,
		UseTPUFourierOptimizations: false,
		TPUShortSeqLength:          512,
	}
}

// NewConfig applies opts in order over the defaults.
func NewConfig(opts ...Option) *Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewConfigFromMap applies keyword overrides over the defaults. Keys that
// name no field are kept as extras.
func NewConfigFromMap(overrides map[string]interface{}) (*Config, error) {
	return DefaultConfig().WithOverrides(overrides)
}

// WithOverrides returns a copy of c with overrides applied.
func (c *Config) WithOverrides(overrides map[string]interface{}) (*Config,
	error) {
	clone := c.Clone()
	if err := config.Decode(overrides, clone); err != nil {
		return nil, err
	}
	clone.ModelType = ModelType
	return clone, nil
}

func (c *Config) Clone() *Config {
	clone := *c
	clone.Pretrained = c.CloneBase()
	return &clone
}

func (c *Config) fields() map[string]interface{} {
	return map[string]interface{}{
		"vocab_size":                    c.VocabSize,
		"hidden_size":                   c.HiddenSize,
		"num_hidden_layers":             c.NumHiddenLayers,
		"intermediate_size":             c.IntermediateSize,
		"hidden_act":                    c.HiddenAct,
		"hidden_dropout_prob":           c.HiddenDropoutProb,
		"max_position_embeddings":       c.MaxPositionEmbeddings,
		"type_vocab_size":               c.TypeVocabSize,
		"initializer_range":             c.InitializerRange,
		"layer_norm_eps":                c.LayerNormEps,
		"use_tpu_fourier_optimizations": c.UseTPUFourierOptimizations,
		"tpu_short_seq_length":          c.TPUShortSeqLength,
	}
}

// ToMap flattens the configuration, extras included, into the shape of
// `config.json`.
func (c *Config) ToMap() map[string]interface{} {
	m := c.Pretrained.ToMap()
	for k, v := range c.fields() {
		m[k] = v
	}
	return m
}

// Get looks up any attribute by its serialized name.
func (c *Config) Get(key string) (interface{}, bool) {
	v, ok := c.ToMap()[key]
	return v, ok
}

// ToDiffMap returns only the attributes that differ from DefaultConfig.
func (c *Config) ToDiffMap() map[string]interface{} {
	return config.DiffMap(c, DefaultConfig())
}

func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToMap())
}

func (c *Config) UnmarshalJSON(data []byte) error {
	m, err := config.UnmarshalMap(data)
	if err != nil {
		return err
	}
	decoded, err := NewConfigFromMap(m)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

// Save writes `config.json` into dir.
func (c *Config) Save(dir string) error {
	return config.Save(c, dir)
}

// FourierPath names the strategy a model built from c would use to mix
// a sequence of seqLen tokens.
func (c *Config) FourierPath(seqLen int) string {
	if c.UseTPUFourierOptimizations && seqLen <= DFTMatrixMaxSeqLength {
		return FourierDFTMatrix
	}
	return FourierFFT
}

// FromPretrained loads the configuration of a published model, a hub id,
// or a local directory holding `config.json`.
func FromPretrained(id string, opts ...resources.Option) (*Config, error) {
	data, err := config.ResolveJSON(id, ArchiveMap[id], opts...)
	if err != nil {
		return nil, err
	}
	c := &Config{}
	if err = json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.NameOrPath == "" {
		c.NameOrPath = id
	}
	return c, nil
}

func init() {
	config.Register(ModelType,
		func(overrides map[string]interface{}) (config.Model, error) {
			return NewConfigFromMap(overrides)
		})
}
