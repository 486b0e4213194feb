package main

import (
	"flag"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/wbrown/hf_bpe/resources"
)

// Converts a sentencepiece.bpe.model into the vocab.json and merges.txt
// pair the slow BPE engine loads.

func main() {
	modelPath := flag.String("model", "",
		"path to a sentencepiece BPE model")
	outputDir := flag.String("output", "./",
		"directory to write vocab.json, merges.txt and specials.txt to")
	flag.Parse()
	if *modelPath == "" {
		flag.Usage()
		log.Fatal("Must provide -model")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatal(err)
	}
	converted, err := resources.ConvertSentencepieceFile(*modelPath,
		*outputDir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s tokens, %s merges and %d specials to %s",
		humanize.Comma(int64(len(converted.Vocab))),
		humanize.Comma(int64(len(converted.Merges))),
		len(converted.Specials), *outputDir)
}
