// Package models maps family names onto tokenizer specs and makes every
// model configuration type available to config.FromJSON.
package models

import (
	"fmt"
	"sort"

	"github.com/wbrown/hf_bpe/models/bart"
	_ "github.com/wbrown/hf_bpe/models/fnet"
	"github.com/wbrown/hf_bpe/models/plbart"
	"github.com/wbrown/hf_bpe/tokenizer"
)

var tokenizerSpecs = map[string]func() *tokenizer.Spec{
	"bart":   bart.Spec,
	"plbart": plbart.Spec,
}

// TokenizerSpec returns a fresh Spec for family.
func TokenizerSpec(family string) (*tokenizer.Spec, error) {
	specFn, ok := tokenizerSpecs[family]
	if !ok {
		return nil, fmt.Errorf("unknown tokenizer family %q, want one of %v",
			family, Families())
	}
	return specFn(), nil
}

func Families() []string {
	families := make([]string, 0, len(tokenizerSpecs))
	for family := range tokenizerSpecs {
		families = append(families, family)
	}
	sort.Strings(families)
	return families
}

// LoadTokenizer resolves a tokenizer of the given family for id.
func LoadTokenizer(family string, id string, opts ...tokenizer.Option) (
	*tokenizer.Fast, error) {
	spec, err := TokenizerSpec(family)
	if err != nil {
		return nil, err
	}
	return tokenizer.FromPretrained(spec, id, opts...)
}
