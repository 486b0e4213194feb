package fnet

// Option sets one field of a Config under construction.
type Option func(*Config)

func WithVocabSize(v int) Option {
	return func(c *Config) { c.VocabSize = v }
}

func WithHiddenSize(v int) Option {
	return func(c *Config) { c.HiddenSize = v }
}

func WithNumHiddenLayers(v int) Option {
	return func(c *Config) { c.NumHiddenLayers = v }
}

func WithIntermediateSize(v int) Option {
	return func(c *Config) { c.IntermediateSize = v }
}

func WithHiddenAct(v string) Option {
	return func(c *Config) { c.HiddenAct = v }
}

func WithHiddenDropoutProb(v float64) Option {
	return func(c *Config) { c.HiddenDropoutProb = v }
}

func WithMaxPositionEmbeddings(v int) Option {
	return func(c *Config) { c.MaxPositionEmbeddings = v }
}

func WithTypeVocabSize(v int) Option {
	return func(c *Config) { c.TypeVocabSize = v }
}

func WithInitializerRange(v float64) Option {
	return func(c *Config) { c.InitializerRange = v }
}

func WithLayerNormEps(v float64) Option {
	return func(c *Config) { c.LayerNormEps = v }
}

func WithUseTPUFourierOptimizations(v bool) Option {
	return func(c *Config) { c.UseTPUFourierOptimizations = v }
}

func WithTPUShortSeqLength(v int) Option {
	return func(c *Config) { c.TPUShortSeqLength = v }
}

func WithPadTokenID(v int) Option {
	return func(c *Config) { c.PadTokenID = intPtr(v) }
}

func WithBosTokenID(v int) Option {
	return func(c *Config) { c.BosTokenID = intPtr(v) }
}

func WithEosTokenID(v int) Option {
	return func(c *Config) { c.EosTokenID = intPtr(v) }
}

// WithExtra passes a keyword no field claims through to the base record.
func WithExtra(key string, value interface{}) Option {
	return func(c *Config) {
		if c.Extra == nil {
			c.Extra = make(map[string]interface{})
		}
		c.Extra[key] = value
	}
}
