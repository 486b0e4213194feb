package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wbrown/hf_bpe/config"
	"github.com/wbrown/hf_bpe/models"
	"github.com/wbrown/hf_bpe/resources"
	"github.com/wbrown/hf_bpe/tokenizer"
)

func main() {
	modelId := flag.String("model", "",
		"model URL, path, or huggingface id to fetch")
	familyOpt := flag.String("family", "plbart",
		fmt.Sprintf("tokenizer family %v", models.Families()))
	destPath := flag.String("dest", "./",
		"where to download the model to")
	cacheDir := flag.String("cache_dir", "",
		"cache directory for downloaded resources")
	skipConfig := flag.Bool("skip_config", false,
		"do not fetch config.json")
	flag.Parse()
	if *modelId == "" {
		flag.Usage()
		log.Fatal("Must provide -model")
	}

	if err := os.MkdirAll(*destPath, 0755); err != nil {
		log.Fatal(err)
	}

	var rsrcOpts []resources.Option
	if *cacheDir != "" {
		rsrcOpts = append(rsrcOpts, resources.WithCacheDir(*cacheDir))
	}
	if token := os.Getenv("HF_API_TOKEN"); token != "" {
		rsrcOpts = append(rsrcOpts, resources.WithAuthToken(token))
	}

	fast, err := models.LoadTokenizer(*familyOpt, *modelId,
		tokenizer.WithResourceOptions(rsrcOpts...))
	if err != nil {
		log.Fatalf("Error resolving tokenizer resources: %s", err)
	}
	defer fast.Close()
	if err := fast.Save(*destPath); err != nil {
		log.Fatalf("Error saving tokenizer: %s", err)
	}
	log.Printf("Saved %s tokenizer (%s backend) to %s",
		fast.NameOrPath(), fast.BackendName(), *destPath)

	if *skipConfig {
		return
	}
	model, err := config.FromPretrained(*modelId, rsrcOpts...)
	switch {
	case errors.Is(err, resources.ErrNotFound):
		log.Printf("No %s for %s, skipping", config.ConfigName, *modelId)
	case err != nil:
		log.Printf("Error resolving model config: %s", err)
	default:
		if err := config.Save(model, *destPath); err != nil {
			log.Fatalf("Error saving model config: %s", err)
		}
		log.Printf("Saved %s config to %s", model.Base().ModelType,
			*destPath)
	}
}
