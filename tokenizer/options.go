package tokenizer

import "github.com/wbrown/hf_bpe/resources"

type options struct {
	forceSlow      bool
	addPrefixSpace *bool
	cleanup        *bool
	modelMaxLength int
	specials       *SpecialTokens
	resourceOpts   []resources.Option
}

type Option func(*options)

// WithForceSlow skips `tokenizer.json` and builds the slow backend.
func WithForceSlow() Option {
	return func(o *options) { o.forceSlow = true }
}

func WithAddPrefixSpace(add bool) Option {
	return func(o *options) { o.addPrefixSpace = &add }
}

func WithCleanUpTokenizationSpaces(cleanup bool) Option {
	return func(o *options) { o.cleanup = &cleanup }
}

// WithModelMaxLength overrides every other source of the length limit.
func WithModelMaxLength(length int) Option {
	return func(o *options) { o.modelMaxLength = length }
}

// WithSpecialTokens replaces the special tokens a Spec and any saved
// configuration declare.
func WithSpecialTokens(specials SpecialTokens) Option {
	return func(o *options) { o.specials = &specials }
}

func WithCacheDir(dir string) Option {
	return WithResourceOptions(resources.WithCacheDir(dir))
}

// WithResourceOptions passes options through to resources.Resolve.
func WithResourceOptions(opts ...resources.Option) Option {
	return func(o *options) { o.resourceOpts = append(o.resourceOpts, opts...) }
}
