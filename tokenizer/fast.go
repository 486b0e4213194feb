package tokenizer

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/wbrown/hf_bpe"
	"github.com/wbrown/hf_bpe/resources"
	"github.com/wbrown/hf_bpe/types"
)

// Fast is the tokenizer engine. Everything family specific comes from its
// Spec; everything algorithmic comes from its Backend.
type Fast struct {
	spec           *Spec
	backend        Backend
	rsrcs          *resources.Resources
	nameOrPath     string
	specials       SpecialTokens
	specialIDs     map[types.Token]bool
	modelMaxLength int
	addPrefixSpace bool
	cleanup        bool
}

// FromPretrained resolves the files of id, a table entry, hub identifier,
// URL or local directory, and builds a tokenizer from them.
func FromPretrained(spec *Spec, id string, opts ...Option) (*Fast, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	rsrcs, err := resources.Resolve(id, spec.requests(id), o.resourceOpts...)
	if err != nil {
		return nil, err
	}
	fast, err := newFast(spec, rsrcs, id, o)
	if err != nil {
		rsrcs.Cleanup()
		return nil, err
	}
	return fast, nil
}

// NewFromFiles builds a tokenizer from local files keyed by file kind,
// for example VocabFile or TokenizerFile.
func NewFromFiles(spec *Spec, files map[string]string, opts ...Option) (
	*Fast, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	names := spec.FileNames()
	byName := make(map[string]string, len(files))
	for kind, path := range files {
		name, ok := names[kind]
		if !ok {
			return nil, fmt.Errorf("unknown file kind `%s` for %s", kind,
				spec.Name)
		}
		byName[name] = path
	}
	rsrcs, err := resources.FromFiles(byName)
	if err != nil {
		return nil, err
	}
	fast, err := newFast(spec, rsrcs, "", o)
	if err != nil {
		rsrcs.Cleanup()
		return nil, err
	}
	return fast, nil
}

func newFast(spec *Spec, rsrcs *resources.Resources, nameOrPath string,
	o *options) (*Fast, error) {
	fast := &Fast{
		spec:           spec,
		rsrcs:          rsrcs,
		nameOrPath:     nameOrPath,
		specials:       spec.SpecialTokens,
		modelMaxLength: math.MaxInt,
		addPrefixSpace: spec.AddPrefixSpace,
		cleanup:        true,
	}
	fast.specials.Additional = append([]string(nil),
		spec.SpecialTokens.Additional...)
	if err := fast.loadSavedConfig(); err != nil {
		return nil, err
	}
	if size, ok := spec.MaxInputSize(nameOrPath); ok &&
		size < fast.modelMaxLength {
		fast.modelMaxLength = size
	}
	if o.modelMaxLength > 0 {
		fast.modelMaxLength = o.modelMaxLength
	}
	if o.addPrefixSpace != nil {
		fast.addPrefixSpace = *o.addPrefixSpace
	}
	if o.cleanup != nil {
		fast.cleanup = *o.cleanup
	}
	if o.specials != nil {
		fast.specials = *o.specials
	}

	backend, err := fast.selectBackend(o.forceSlow)
	if err != nil {
		return nil, err
	}
	fast.backend = backend
	fast.specialIDs = make(map[types.Token]bool, 8)
	for _, special := range fast.specials.All() {
		if id, ok := backend.TokenToID(special); ok {
			fast.specialIDs[id] = true
		}
	}
	return fast, nil
}

// loadSavedConfig applies `tokenizer_config.json`, then
// `special_tokens_map.json`, when they were resolved.
func (fast *Fast) loadSavedConfig() error {
	if data, ok := fast.rsrcs.Bytes(TokenizerConfigName); ok {
		cfg, err := parseSavedConfig(data, &fast.specials)
		if err != nil {
			return err
		}
		if cfg.ModelMaxLength != nil {
			fast.modelMaxLength = clampLength(*cfg.ModelMaxLength)
		}
		if cfg.AddPrefixSpace != nil {
			fast.addPrefixSpace = *cfg.AddPrefixSpace
		}
		if cfg.CleanUpTokenizationSpaces != nil {
			fast.cleanup = *cfg.CleanUpTokenizationSpaces
		}
	}
	if data, ok := fast.rsrcs.Bytes(SpecialTokensMapName); ok {
		if err := parseSpecialTokensMap(data, &fast.specials); err != nil {
			return err
		}
	}
	return nil
}

func (fast *Fast) selectBackend(forceSlow bool) (Backend, error) {
	label := fast.nameOrPath
	if label == "" {
		label = fast.spec.Name
	}
	if path, ok := fast.rsrcs.PathOf(fast.spec.tokenizerJSONName()); ok &&
		!forceSlow {
		backend, err := NewSugarBackend(path, fast.specials,
			fast.addPrefixSpace)
		if err == nil {
			return backend, nil
		}
		log.Printf("fast backend unavailable for %s, falling back to %s: %v",
			label, fast.spec.SlowTokenizerClass, err)
	}
	if fast.spec.Slow == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoBackend, label)
	}
	backend, err := fast.spec.Slow(SlowConfig{
		Files:          *fast.rsrcs,
		FileNames:      fast.spec.FileNames(),
		Specials:       fast.specials,
		AddPrefixSpace: fast.addPrefixSpace,
	})
	if err != nil {
		if errors.Is(err, ErrMissingFiles) {
			return nil, fmt.Errorf("%w for %s: %w", ErrNoBackend, label, err)
		}
		return nil, fmt.Errorf("error building %s for %s: %w",
			fast.spec.SlowTokenizerClass, label, err)
	}
	return backend, nil
}

// Close releases the mapped resource files.
func (fast *Fast) Close() {
	if fast.rsrcs != nil {
		fast.rsrcs.Cleanup()
	}
}

func (fast *Fast) Spec() *Spec {
	return fast.spec
}

// BackendName reports which backend was selected.
func (fast *Fast) BackendName() string {
	return fast.backend.Name()
}

func (fast *Fast) NameOrPath() string {
	return fast.nameOrPath
}

func (fast *Fast) SpecialTokens() SpecialTokens {
	return fast.specials
}

func (fast *Fast) ModelMaxLength() int {
	return fast.modelMaxLength
}

func (fast *Fast) VocabSize() int {
	return fast.backend.VocabSize()
}

func (fast *Fast) TokenToID(token string) (types.Token, bool) {
	return fast.backend.TokenToID(token)
}

func (fast *Fast) IDToToken(id types.Token) (string, bool) {
	return fast.backend.IDToToken(id)
}

// IsSpecial reports whether id is one of the special tokens.
func (fast *Fast) IsSpecial(id types.Token) bool {
	return fast.specialIDs[id]
}

func (fast *Fast) roleID(role string) (types.Token, bool) {
	if role == "" {
		return 0, false
	}
	return fast.backend.TokenToID(role)
}

// wrap surrounds a sequence with the classifier and separator tokens.
func (fast *Fast) wrap(dst types.Tokens, seq types.Tokens,
	leading bool) types.Tokens {
	cls, haveCls := fast.roleID(fast.specials.Cls)
	sep, haveSep := fast.roleID(fast.specials.Sep)
	if leading && haveCls {
		dst = append(dst, cls)
	} else if !leading && haveSep {
		dst = append(dst, sep)
	}
	dst = append(dst, seq...)
	if haveSep {
		dst = append(dst, sep)
	}
	return dst
}

// Encode encodes text as a single sequence: `<s> X </s>`.
func (fast *Fast) Encode(text string) (types.Tokens, error) {
	ids, err := fast.backend.Encode(text)
	if err != nil {
		return nil, err
	}
	return fast.wrap(make(types.Tokens, 0, len(ids)+2), ids, true), nil
}

// EncodePair encodes two sequences: `<s> A </s></s> B </s>`.
func (fast *Fast) EncodePair(first string, second string) (types.Tokens,
	error) {
	a, err := fast.backend.Encode(first)
	if err != nil {
		return nil, err
	}
	b, err := fast.backend.Encode(second)
	if err != nil {
		return nil, err
	}
	encoded := fast.wrap(make(types.Tokens, 0, len(a)+len(b)+4), a, true)
	return fast.wrap(encoded, b, false), nil
}

// Decode turns tokens back into text, dropping special tokens when
// skipSpecial is set.
func (fast *Fast) Decode(tokens types.Tokens, skipSpecial bool) string {
	text := fast.DecodeUncleaned(tokens, skipSpecial)
	if fast.cleanup {
		text = CleanUpTokenization(text)
	}
	return text
}

// DecodeUncleaned is Decode without the tokenization space cleanup, for
// callers that decode a stream in pieces and clean up whole lines.
func (fast *Fast) DecodeUncleaned(tokens types.Tokens,
	skipSpecial bool) string {
	if skipSpecial {
		kept := make(types.Tokens, 0, len(tokens))
		for _, token := range tokens {
			if !fast.specialIDs[token] {
				kept = append(kept, token)
			}
		}
		tokens = kept
	}
	return fast.backend.Decode(tokens)
}

// CleansUpTokenizationSpaces reports whether Decode removes the spaces
// tokenization leaves before punctuation and contractions.
func (fast *Fast) CleansUpTokenizationSpaces() bool {
	return fast.cleanup
}

// EncodeText and DecodeText satisfy hf_bpe.TextCodec: plain text with no
// special tokens on either side.
func (fast *Fast) EncodeText(text string) (types.Tokens, error) {
	return fast.backend.Encode(text)
}

func (fast *Fast) DecodeText(tokens types.Tokens) string {
	return fast.backend.Decode(tokens)
}

// Truncate cuts tokens down to ModelMaxLength. A sequence that ended in
// the separator still does.
func (fast *Fast) Truncate(tokens types.Tokens) types.Tokens {
	if len(tokens) <= fast.modelMaxLength {
		return tokens
	}
	truncated := append(types.Tokens(nil), tokens[:fast.modelMaxLength]...)
	sep, haveSep := fast.roleID(fast.specials.Sep)
	if haveSep && tokens[len(tokens)-1] == sep && len(truncated) > 0 {
		truncated[len(truncated)-1] = sep
	}
	return truncated
}

// TrimSentences encodes text and drops whole sentences from direction
// until it fits in limit tokens. A limit of 0 leaves room for the two
// special tokens Encode adds around ModelMaxLength.
func (fast *Fast) TrimSentences(text string, direction hf_bpe.TrimDirection,
	limit uint) (types.Tokens, error) {
	if limit == 0 {
		if fast.modelMaxLength == math.MaxInt {
			limit = math.MaxUint32
		} else if fast.modelMaxLength > 2 {
			limit = uint(fast.modelMaxLength - 2)
		}
	}
	tokens, err := fast.EncodeText(text)
	if err != nil {
		return nil, err
	}
	return hf_bpe.TrimSentences(fast, tokens, direction, limit)
}

// resourceNames lists the resolved file names in a stable order.
func (fast *Fast) resourceNames() []string {
	names := make([]string, 0, len(*fast.rsrcs))
	for name := range *fast.rsrcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
