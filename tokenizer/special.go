package tokenizer

import (
	"encoding/json"
	"fmt"
	"math"
)

// SpecialTokens holds the literal text of each special token role. An
// empty role is unused.
type SpecialTokens struct {
	Bos        string
	Eos        string
	Unk        string
	Sep        string
	Pad        string
	Cls        string
	Mask       string
	Additional []string
}

// All lists the distinct special tokens, roles first.
func (s SpecialTokens) All() []string {
	seen := make(map[string]bool, 8+len(s.Additional))
	all := make([]string, 0, 8+len(s.Additional))
	candidates := append([]string{s.Bos, s.Eos, s.Unk, s.Sep, s.Pad, s.Cls,
		s.Mask}, s.Additional...)
	for _, token := range candidates {
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		all = append(all, token)
	}
	return all
}

func (s *SpecialTokens) roles() map[string]*string {
	return map[string]*string{
		"bos_token":  &s.Bos,
		"eos_token":  &s.Eos,
		"unk_token":  &s.Unk,
		"sep_token":  &s.Sep,
		"pad_token":  &s.Pad,
		"cls_token":  &s.Cls,
		"mask_token": &s.Mask,
	}
}

// ToMap renders the roles the way `special_tokens_map.json` stores them.
func (s SpecialTokens) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, 8)
	for key, value := range s.roles() {
		if *value != "" {
			m[key] = *value
		}
	}
	if len(s.Additional) > 0 {
		m["additional_special_tokens"] = s.Additional
	}
	return m
}

// addedToken is the object form a special token may be saved in.
type addedToken struct {
	Content string `json:"content"`
}

func parseTokenValue(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	var added addedToken
	if err := json.Unmarshal(raw, &added); err != nil {
		return "", err
	}
	return added.Content, nil
}

// apply overlays the roles present in m. A null role keeps its value.
func (s *SpecialTokens) apply(m map[string]json.RawMessage) error {
	for key, target := range s.roles() {
		raw, ok := m[key]
		if !ok || string(raw) == "null" {
			continue
		}
		text, err := parseTokenValue(raw)
		if err != nil {
			return fmt.Errorf("bad `%s`: %w", key, err)
		}
		*target = text
	}
	if raw, ok := m["additional_special_tokens"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("bad `additional_special_tokens`: %w", err)
		}
		additional := make([]string, 0, len(items))
		for _, item := range items {
			text, err := parseTokenValue(item)
			if err != nil {
				return fmt.Errorf("bad `additional_special_tokens`: %w", err)
			}
			additional = append(additional, text)
		}
		s.Additional = additional
	}
	return nil
}

// savedConfig is what `tokenizer_config.json` contributes besides the
// special tokens.
type savedConfig struct {
	ModelMaxLength            *float64 `json:"model_max_length"`
	AddPrefixSpace            *bool    `json:"add_prefix_space"`
	CleanUpTokenizationSpaces *bool    `json:"clean_up_tokenization_spaces"`
	TokenizerClass            string   `json:"tokenizer_class"`
}

func parseSavedConfig(data []byte, specials *SpecialTokens) (*savedConfig,
	error) {
	cfg := &savedConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling `%s`: %w",
			TokenizerConfigName, err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := specials.apply(m); err != nil {
		return nil, fmt.Errorf("`%s`: %w", TokenizerConfigName, err)
	}
	return cfg, nil
}

func parseSpecialTokensMap(data []byte, specials *SpecialTokens) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("error unmarshalling `%s`: %w",
			SpecialTokensMapName, err)
	}
	if err := specials.apply(m); err != nil {
		return fmt.Errorf("`%s`: %w", SpecialTokensMapName, err)
	}
	return nil
}

// clampLength turns a saved model_max_length, which is often 1e30 for
// "unbounded", into an int.
func clampLength(v float64) int {
	if v <= 0 || v >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(v)
}
