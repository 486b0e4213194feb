package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/wbrown/hf_bpe/models"
	"github.com/wbrown/hf_bpe/models/plbart"
	"github.com/wbrown/hf_bpe/tokenizer"
	"github.com/wbrown/hf_bpe/types"
)

// A REPL for interacting with the BART family tokenizers.

func main() {
	familyOpt := flag.String("family", "plbart",
		fmt.Sprintf("tokenizer family %v", models.Families()))
	modelId := flag.String("model", plbart.BaseModelID,
		"model id, URL or local directory holding the tokenizer files")
	forceSlow := flag.Bool("force_slow", false,
		"ignore tokenizer.json and use the slow BPE engine")
	pair := flag.Bool("pair", false,
		"encode tab separated input as a sequence pair")
	flag.Parse()

	var opts []tokenizer.Option
	if *forceSlow {
		opts = append(opts, tokenizer.WithForceSlow())
	}
	fast, err := models.LoadTokenizer(*familyOpt, *modelId, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer fast.Close()
	log.Printf("Loaded %s with the %s backend, %d tokens.",
		fast.NameOrPath(), fast.BackendName(), fast.VocabSize())

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(">>> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			log.Fatal(err)
		}
		// Remove trailing newline and replace \n with newline.
		input = strings.Replace(strings.TrimSuffix(input, "\n"),
			"\\n", "\n", -1)

		var tokens types.Tokens
		if first, second, ok := strings.Cut(input, "\t"); *pair && ok {
			tokens, err = fast.EncodePair(first, second)
		} else {
			tokens, err = fast.Encode(input)
		}
		if err != nil {
			log.Printf("Error encoding: %s", err)
			continue
		}
		fmt.Printf("%v\n", tokens)
		for _, token := range tokens {
			piece, _ := fast.IDToToken(token)
			fmt.Printf("|%s", piece)
		}
		fmt.Printf("\n")
	}
}
