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
	"github.com/wbrown/hf_bpe/tokenizer"
	"github.com/wbrown/hf_bpe/types"
)

func loadTokenizer(spec string) *tokenizer.Fast {
	// Model ids may hold colons themselves, so only the first separates.
	family, id, ok := strings.Cut(spec, ":")
	if !ok || family == "" || id == "" {
		log.Fatalf("Tokenizer %q must be family:model", spec)
	}
	fast, err := models.LoadTokenizer(family, id)
	if err != nil {
		log.Fatal(err)
	}
	return fast
}

func main() {
	inputTokenizerId := flag.String("input_tokenizer", "bart:facebook/bart-base",
		fmt.Sprintf("input tokenizer as family:model, family in %v",
			models.Families()))
	outputTokenizerId := flag.String("output_tokenizer", "plbart:plbart-base",
		"output tokenizer as family:model")
	contextSize := flag.Int("context_size", 1024,
		"number of tokens to use as context")
	showContexts := flag.Bool("show_contexts", false,
		"show contexts as they are retokenized")
	noUnitrim := flag.Bool("no_unitrim", false,
		"do not trim retokenized contexts to valid unicode")
	in32 := flag.Bool("in32", false,
		"force input tokens to be read as 32-bit")
	out32 := flag.Bool("out32", false,
		"force output tokens to be written as 32-bit")
	inputFile := flag.String("input", "",
		"input file to retokenize")
	outputFile := flag.String("output", "retokenized.tokens",
		"output file to write retokenized data")
	flag.Parse()
	if *inputFile == "" {
		flag.Usage()
		log.Fatal("Must provide -input")
	}
	if *contextSize < 1 {
		flag.Usage()
		log.Fatal("Context size must be greater than 0")
	}
	// check if input and output tokenizers are the same
	if *inputTokenizerId == *outputTokenizerId {
		log.Fatal("Input and output tokenizers must be different")
	}
	// check if input and output files are the same
	if *inputFile == *outputFile {
		log.Fatal("Input and output files must be different")
	}
	// check if input file exists
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist")
	}

	inputTokenizer := loadTokenizer(*inputTokenizerId)
	defer inputTokenizer.Close()
	input32Bit := *in32 || inputTokenizer.VocabSize() > 65536
	outputTokenizer := loadTokenizer(*outputTokenizerId)
	defer outputTokenizer.Close()
	output32Bit := *out32 || outputTokenizer.VocabSize() > 65536
	padToken, ok := outputTokenizer.TokenToID(
		outputTokenizer.SpecialTokens().Pad)
	if !ok {
		log.Fatalf("Output tokenizer has no pad token %q",
			outputTokenizer.SpecialTokens().Pad)
	}
	if *contextSize > outputTokenizer.ModelMaxLength() {
		log.Printf("Context size %d exceeds %s model_max_length %d",
			*contextSize, outputTokenizer.NameOrPath(),
			outputTokenizer.ModelMaxLength())
	}
	if input32Bit {
		log.Println("Reading as 32-bit")
	} else {
		log.Println("Reading as 16-bit")
	}
	if output32Bit {
		log.Println("Writing as 32-bit")
	} else {
		log.Println("Writing as 16-bit")
	}

	// open input file
	inputFileHandle, inputOpenErr := os.Open(*inputFile)
	if inputOpenErr != nil {
		log.Fatal(inputOpenErr)
	}
	defer inputFileHandle.Close()
	// open output file
	outputFileHandle, outputOpenErr := os.Create(*outputFile)
	if outputOpenErr != nil {
		log.Fatal(outputOpenErr)
	}
	defer outputFileHandle.Close()
	// create context buffer
	tokenSize := types.TokenSize / 2
	if input32Bit {
		tokenSize = types.TokenSize
	}
	contextBuffer := make([]byte, *contextSize*tokenSize)

	// read input context by context
	for {
		bytesRead, readErr := io.ReadFull(inputFileHandle, contextBuffer)
		if bytesRead <= 0 {
			break
		}
		if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			log.Fatal(readErr)
		}

		context := contextBuffer[:bytesRead]
		var inputTokens *types.Tokens
		if input32Bit {
			inputTokens = types.TokensFromBin32(&context)
		} else {
			inputTokens = types.TokensFromBin(&context)
		}
		decoded := inputTokenizer.Decode(*inputTokens, true)
		encoded, encodeErr := outputTokenizer.Encode(decoded)
		if encodeErr != nil {
			log.Fatal(encodeErr)
		}
		// trim encoded tokens to context size
		if len(encoded) > *contextSize {
			encoded = encoded[:*contextSize]
		}
		if !*noUnitrim {
			encoded = hf_bpe.TrimUnicode(outputTokenizer, encoded)
		}
		// pad out context
		for len(encoded) < *contextSize {
			encoded = append(encoded, padToken)
		}
		bytesToWrite, binErr := encoded.ToBin(output32Bit)
		if binErr != nil {
			log.Fatal(binErr)
		}
		bytesWritten, writeErr := outputFileHandle.Write(*bytesToWrite)
		if writeErr != nil {
			log.Fatal(writeErr)
		}
		if bytesWritten != len(*bytesToWrite) {
			log.Fatal("Could not write full context")
		}
		if *showContexts {
			log.Printf("Input: %s", decoded)
			log.Printf("Output: %s", outputTokenizer.Decode(encoded, false))
		}
		if readErr != nil {
			break
		}
	}
}
