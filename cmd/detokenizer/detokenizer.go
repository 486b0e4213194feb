package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/wbrown/hf_bpe"
	"github.com/wbrown/hf_bpe/models"
	"github.com/wbrown/hf_bpe/models/plbart"
	"github.com/wbrown/hf_bpe/tokenizer"
	"github.com/wbrown/hf_bpe/types"
)

func main() {
	familyOpt := flag.String("family", "plbart",
		fmt.Sprintf("tokenizer family %v", models.Families()))
	modelId := flag.String("model", plbart.BaseModelID,
		"model id, URL or local directory holding the tokenizer files")
	inputFile := flag.String("input", "",
		"input file of binary tokens to detokenize")
	outputFile := flag.String("output", "detokenized.txt",
		"output file to write detokenized text")
	in32 := flag.Bool("in32", false,
		"read input tokens as 32-bit")
	skipSpecial := flag.Bool("skip_special", false,
		"drop special tokens from the output")
	flag.Parse()

	if *inputFile == "" {
		flag.Usage()
		log.Fatal("Must provide -input")
	}
	if *outputFile == "" {
		flag.Usage()
		log.Fatal("Must provide -output")
	}

	// check if input file exists
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist")
	}

	fast, err := models.LoadTokenizer(*familyOpt, *modelId)
	if err != nil {
		log.Fatal(err)
	}
	defer fast.Close()

	inputFileHandle, err := os.Open(*inputFile)
	if err != nil {
		log.Fatal(err)
	}
	defer inputFileHandle.Close()

	outputFileHandle, err := os.Create(*outputFile)
	if err != nil {
		log.Fatal(err)
	}
	defer outputFileHandle.Close()

	if err := detokenize(fast, inputFileHandle, outputFileHandle, *in32,
		*skipSpecial, 4096); err != nil {
		log.Fatal(err)
	}
}

// detokenize decodes binary tokens from reader in chunkSize byte reads and
// writes the text to writer. Tokens whose bytes are not complete characters
// yet carry over into the next read. Cleanup never spans a newline, so it
// runs a line at a time and the unfinished last line waits for more text.
func detokenize(fast *tokenizer.Fast, reader io.Reader, writer io.Writer,
	in32 bool, skipSpecial bool, chunkSize int) error {
	var pending types.Tokens
	var unfinished string
	emit := func(text string, final bool) error {
		if fast.CleansUpTokenizationSpaces() {
			text = unfinished + text
			cut := len(text)
			if !final {
				cut = strings.LastIndexByte(text, '\n') + 1
			}
			unfinished = text[cut:]
			text = tokenizer.CleanUpTokenization(text[:cut])
		}
		_, err := io.WriteString(writer, text)
		return err
	}

	bytes := make([]byte, chunkSize)
	for {
		bytesRead, readErr := io.ReadFull(reader, bytes)
		if bytesRead > 0 {
			chunk := bytes[:bytesRead]
			var tokens *types.Tokens
			if in32 {
				tokens = types.TokensFromBin32(&chunk)
			} else {
				tokens = types.TokensFromBin(&chunk)
			}
			pending = append(pending, *tokens...)
			complete := hf_bpe.TrimUnicode(fast, pending)
			decoded := fast.DecodeUncleaned(complete, skipSpecial)
			pending = append(types.Tokens{}, pending[len(complete):]...)
			if err := emit(decoded, false); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) ||
			errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		} else if readErr != nil {
			return readErr
		}
	}
	return emit(fast.DecodeUncleaned(pending, skipSpecial), true)
}
