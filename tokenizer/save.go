package tokenizer

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
)

// Save writes the resolved files into dir, together with a
// `tokenizer_config.json` and `special_tokens_map.json` describing the
// tokenizer as configured, so that FromPretrained(spec, dir) rebuilds it.
func (fast *Fast) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, name := range fast.resourceNames() {
		if name == TokenizerConfigName || name == SpecialTokensMapName {
			continue
		}
		target := filepath.Join(dir, name)
		if src, ok := fast.rsrcs.PathOf(name); ok && samePath(src, target) {
			continue
		}
		data, _ := fast.rsrcs.Bytes(name)
		if err := os.WriteFile(target, data, 0644); err != nil {
			return err
		}
	}

	specials := fast.specials.ToMap()
	cfg := make(map[string]interface{}, len(specials)+4)
	for key, value := range specials {
		cfg[key] = value
	}
	cfg["add_prefix_space"] = fast.addPrefixSpace
	cfg["clean_up_tokenization_spaces"] = fast.cleanup
	if fast.spec.SlowTokenizerClass != "" {
		cfg["tokenizer_class"] = fast.spec.SlowTokenizerClass
	}
	if fast.modelMaxLength != math.MaxInt {
		cfg["model_max_length"] = fast.modelMaxLength
	} else {
		cfg["model_max_length"] = 1e30
	}
	cfgPath := filepath.Join(dir, TokenizerConfigName)
	if err := writeJSON(cfgPath, cfg); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, SpecialTokensMapName), specials)
}

func samePath(a string, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
