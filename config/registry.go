package config

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wbrown/hf_bpe/resources"
)

var ErrUnknownModelType = errors.New("unknown model type")

// Factory builds a configuration from keyword overrides.
type Factory func(overrides map[string]interface{}) (Model, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a configuration type available under modelType. Packages
// call it from init.
func Register(modelType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[modelType] = factory
}

func ModelTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for modelType := range registry {
		types = append(types, modelType)
	}
	sort.Strings(types)
	return types
}

// New builds the configuration registered for modelType.
func New(modelType string, overrides map[string]interface{}) (Model, error) {
	registryMu.RLock()
	factory, ok := registry[modelType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModelType, modelType)
	}
	return factory(overrides)
}

// FromJSON dispatches a `config.json` document on its `model_type`.
func FromJSON(data []byte) (Model, error) {
	m, err := UnmarshalMap(data)
	if err != nil {
		return nil, err
	}
	modelType, _ := m["model_type"].(string)
	return New(modelType, m)
}

// FromPretrained resolves `config.json` for id and builds whichever
// configuration type it declares.
func FromPretrained(id string, opts ...resources.Option) (Model, error) {
	data, err := ResolveJSON(id, "", opts...)
	if err != nil {
		return nil, err
	}
	model, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if model.Base().NameOrPath == "" {
		model.Base().NameOrPath = id
	}
	return model, nil
}
