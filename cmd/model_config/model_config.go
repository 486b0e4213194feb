package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
	"github.com/wbrown/hf_bpe/config"
	_ "github.com/wbrown/hf_bpe/models"
	"github.com/wbrown/hf_bpe/resources"
)

const envPrefix = "HF_BPE"

// overrides collects keyword overrides from the override file and from
// HF_BPE_<KEY> environment variables, the latter taking precedence.
// Environment values arrive as strings, so known keys are coerced to the
// type their current value has.
func overrides(v *viper.Viper, current map[string]interface{}) (
	map[string]interface{}, error) {
	for key := range current {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	found := make(map[string]interface{})
	for key, value := range v.AllSettings() {
		found[key] = value
	}
	for key, value := range current {
		if !v.IsSet(key) {
			continue
		}
		switch value.(type) {
		case int:
			found[key] = v.GetInt(key)
		case float64:
			found[key] = v.GetFloat64(key)
		case bool:
			found[key] = v.GetBool(key)
		case string:
			found[key] = v.GetString(key)
		default:
			found[key] = v.Get(key)
		}
	}
	return found, nil
}

func main() {
	modelType := flag.String("type", "fnet",
		fmt.Sprintf("model type to start from %v", config.ModelTypes()))
	modelId := flag.String("model", "",
		"model id, URL or local directory to load config.json from")
	overridesFile := flag.String("overrides", "",
		"json, yaml or toml file of keyword overrides")
	diff := flag.Bool("diff", false,
		"print only values that differ from the model type defaults")
	saveDir := flag.String("save", "",
		"directory to write the resulting config.json to")
	flag.Parse()

	var model config.Model
	var err error
	if *modelId != "" {
		var rsrcOpts []resources.Option
		if token := os.Getenv("HF_API_TOKEN"); token != "" {
			rsrcOpts = append(rsrcOpts, resources.WithAuthToken(token))
		}
		model, err = config.FromPretrained(*modelId, rsrcOpts...)
	} else {
		model, err = config.New(*modelType, nil)
	}
	if err != nil {
		log.Fatal(err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	if *overridesFile != "" {
		v.SetConfigFile(*overridesFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatalf("Error reading overrides: %s", err)
		}
	}
	current := model.ToMap()
	found, err := overrides(v, current)
	if err != nil {
		log.Fatal(err)
	}
	if len(found) > 0 {
		for key, value := range found {
			current[key] = value
		}
		if model, err = config.New(model.Base().ModelType, current); err != nil {
			log.Fatal(err)
		}
		log.Printf("Applied %d overrides", len(found))
	}

	var out []byte
	if *diff {
		defaults, err := config.New(model.Base().ModelType, nil)
		if err != nil {
			log.Fatal(err)
		}
		out, err = json.MarshalIndent(config.DiffMap(model, defaults),
			"", "  ")
		if err != nil {
			log.Fatal(err)
		}
	} else if out, err = config.Marshal(model); err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))

	if *saveDir != "" {
		if err := config.Save(model, *saveDir); err != nil {
			log.Fatal(err)
		}
		log.Printf("Saved %s to %s", config.ConfigName, *saveDir)
	}
}
