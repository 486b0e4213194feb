// Package config holds the fields every pretrained model configuration
// shares, the keyword-override decoder, and the registry that maps a
// `model_type` onto the configuration type for that architecture.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/wbrown/hf_bpe/resources"
)

const ConfigName = "config.json"

var ErrInvalidOverride = errors.New("invalid configuration override")

// Pretrained is the base record. Architecture configurations embed it and
// add their own hyperparameters. Keys that no field claims are kept in Extra
// and written back out unchanged.
type Pretrained struct {
	ModelType           string                 `mapstructure:"model_type"`
	NameOrPath          string                 `mapstructure:"_name_or_path"`
	Architectures       []string               `mapstructure:"architectures"`
	TransformersVersion string                 `mapstructure:"transformers_version"`
	PadTokenID          *int                   `mapstructure:"pad_token_id"`
	BosTokenID          *int                   `mapstructure:"bos_token_id"`
	EosTokenID          *int                   `mapstructure:"eos_token_id"`
	Extra               map[string]interface{} `mapstructure:",remain"`
}

// Model is implemented by every architecture configuration.
type Model interface {
	Base() *Pretrained
	ToMap() map[string]interface{}
}

func (p *Pretrained) Base() *Pretrained {
	return p
}

func intOrNil(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Fields returns the base record's own keys.
func (p *Pretrained) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"model_type":   p.ModelType,
		"pad_token_id": intOrNil(p.PadTokenID),
		"bos_token_id": intOrNil(p.BosTokenID),
		"eos_token_id": intOrNil(p.EosTokenID),
	}
	if p.NameOrPath != "" {
		fields["_name_or_path"] = p.NameOrPath
	}
	if len(p.Architectures) > 0 {
		fields["architectures"] = append([]string(nil), p.Architectures...)
	}
	if p.TransformersVersion != "" {
		fields["transformers_version"] = p.TransformersVersion
	}
	return fields
}

// ToMap returns the extras overlaid with the base fields.
func (p *Pretrained) ToMap() map[string]interface{} {
	merged := make(map[string]interface{}, len(p.Extra)+8)
	for k, v := range p.Extra {
		merged[k] = v
	}
	for k, v := range p.Fields() {
		merged[k] = v
	}
	return merged
}

// Get looks up an attribute by its serialized name, passthrough extras
// included.
func (p *Pretrained) Get(key string) (interface{}, bool) {
	v, ok := p.ToMap()[key]
	return v, ok
}

// CloneBase returns a copy that shares nothing mutable with p.
func (p *Pretrained) CloneBase() Pretrained {
	clone := *p
	clone.Architectures = append([]string(nil), p.Architectures...)
	clone.PadTokenID = copyInt(p.PadTokenID)
	clone.BosTokenID = copyInt(p.BosTokenID)
	clone.EosTokenID = copyInt(p.EosTokenID)
	if p.Extra != nil {
		clone.Extra = make(map[string]interface{}, len(p.Extra))
		for k, v := range p.Extra {
			clone.Extra[k] = v
		}
	}
	return clone
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Decode applies keyword overrides onto target. Recognized keys replace
// their field, a JSON null clears a pointer field, and everything else is
// added to the extras. A value of the wrong type is an error and leaves
// the extras as they were.
func Decode(overrides map[string]interface{}, target Model) error {
	base := target.Base()
	previous := base.Extra
	base.Extra = nil
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     target,
		Squash:     true,
		ZeroFields: true,
		DecodeHook: mapstructure.DecodeHookFuncType(rejectFractionalInts),
	})
	if err != nil {
		base.Extra = previous
		return err
	}
	if decodeErr := decoder.Decode(overrides); decodeErr != nil {
		base.Extra = previous
		return fmt.Errorf("%w: %v", ErrInvalidOverride, decodeErr)
	}
	if len(previous)+len(base.Extra) == 0 {
		base.Extra = nil
		return nil
	}
	merged := make(map[string]interface{}, len(previous)+len(base.Extra))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range base.Extra {
		merged[k] = v
	}
	base.Extra = merged
	return nil
}

// rejectFractionalInts refuses to truncate a float into an integer field,
// the same way a JSON number with a fraction fails to decode into one.
func rejectFractionalInts(from reflect.Type, to reflect.Type,
	data interface{}) (interface{}, error) {
	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	return data, nil
}

// UnmarshalMap parses a JSON document into a generic map, keeping numbers
// as json.Number so integers stay integers on the way back out.
func UnmarshalMap(data []byte) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	m := make(map[string]interface{})
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("error unmarshalling `%s`: %w", ConfigName, err)
	}
	return m, nil
}

// DiffMap keeps the entries of current that differ from defaults.
// `model_type` is always kept.
func DiffMap(current Model, defaults Model) map[string]interface{} {
	raw := current.ToMap()
	currentMap := normalize(raw)
	defaultMap := normalize(defaults.ToMap())
	diff := make(map[string]interface{})
	for k, v := range currentMap {
		if dv, ok := defaultMap[k]; !ok || !reflect.DeepEqual(v, dv) ||
			k == "model_type" {
			diff[k] = raw[k]
		}
	}
	return diff
}

// normalize pushes a map through JSON so that int, float64 and json.Number
// holding the same value compare equal.
func normalize(m map[string]interface{}) map[string]interface{} {
	data, err := json.Marshal(m)
	if err != nil {
		return m
	}
	out := make(map[string]interface{})
	if json.Unmarshal(data, &out) != nil {
		return m
	}
	return out
}

func Marshal(m Model) ([]byte, error) {
	return json.MarshalIndent(m.ToMap(), "", "  ")
}

// Save writes the configuration to `config.json` inside dir.
func Save(m Model, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigName), append(data, '\n'),
		0644)
}

// ResolveJSON fetches `config.json` for id, from url when it is set.
func ResolveJSON(id string, url string, opts ...resources.Option) ([]byte,
	error) {
	rsrcs, err := resources.Resolve(id, []resources.Request{{
		Name: ConfigName,
		URL:  url,
		Flag: resources.RESOURCE_REQUIRED,
	}}, opts...)
	if err != nil {
		return nil, err
	}
	defer rsrcs.Cleanup()
	data, _ := rsrcs.Bytes(ConfigName)
	return append([]byte(nil), data...), nil
}
