package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/wbrown/hf_bpe"
	"github.com/wbrown/hf_bpe/models"
	"github.com/wbrown/hf_bpe/tokenizer"
	"github.com/wbrown/hf_bpe/types"
	"github.com/yargevad/filepathx"
)

type PathInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// GlobTexts recursively finds all `.txt` files under dirPath.
func GlobTexts(dirPath string) (pathInfos []PathInfo, err error) {
	textPaths, err := filepathx.Glob(dirPath + "/**/*.txt")
	if err != nil {
		return nil, err
	}
	if len(textPaths) == 0 {
		return nil, fmt.Errorf("%s does not contain any .txt files",
			dirPath)
	}
	pathInfos = make([]PathInfo, 0, len(textPaths))
	for _, textPath := range textPaths {
		stat, statErr := os.Stat(textPath)
		if statErr != nil {
			return nil, statErr
		}
		pathInfos = append(pathInfos, PathInfo{
			Path:    textPath,
			Size:    stat.Size(),
			ModTime: stat.ModTime(),
		})
	}
	return pathInfos, nil
}

// ReorderPaths sorts pathInfos in place according to spec.
func ReorderPaths(pathInfos []PathInfo, spec string) error {
	switch spec {
	case "", "none":
	case "size_ascending":
		sort.SliceStable(pathInfos, func(i, j int) bool {
			return pathInfos[i].Size < pathInfos[j].Size
		})
	case "size_descending":
		sort.SliceStable(pathInfos, func(i, j int) bool {
			return pathInfos[i].Size > pathInfos[j].Size
		})
	case "path_ascending":
		sort.SliceStable(pathInfos, func(i, j int) bool {
			return pathInfos[i].Path < pathInfos[j].Path
		})
	case "path_descending":
		sort.SliceStable(pathInfos, func(i, j int) bool {
			return pathInfos[i].Path > pathInfos[j].Path
		})
	case "random":
		rand.Shuffle(len(pathInfos), func(i, j int) {
			pathInfos[i], pathInfos[j] = pathInfos[j], pathInfos[i]
		})
	default:
		return fmt.Errorf("invalid reorder spec: %s", spec)
	}
	return nil
}

// FindNewestPath returns the most recently modified of paths.
func FindNewestPath(paths []PathInfo) (*PathInfo, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths")
	}
	newest := paths[0]
	for _, pathInfo := range paths[1:] {
		if newest.ModTime.Before(pathInfo.ModTime) {
			newest = pathInfo
		}
	}
	return &newest, nil
}

// TextsIterator yields one text per call, and false once done.
type TextsIterator func() (string, bool)

// ReadTexts reads the given files on a goroutine a few ahead of the
// consumer.
func ReadTexts(pathInfos []PathInfo, sanitize bool) TextsIterator {
	texts := make(chan string, 4)
	go func() {
		defer close(texts)
		for _, pathInfo := range pathInfos {
			data, err := os.ReadFile(pathInfo.Path)
			if err != nil {
				log.Fatal(err)
			}
			log.Printf("Reading %s (%s)", pathInfo.Path,
				humanize.Bytes(uint64(pathInfo.Size)))
			text := string(data)
			if sanitize {
				text = SanitizeText(text)
			}
			texts <- text
		}
	}()
	return func() (string, bool) {
		text, ok := <-texts
		return text, ok
	}
}

// TextsTokenizer encapsulates the configuration for turning texts into
// fixed size contexts.
type TextsTokenizer struct {
	ContextSize int
	// Boundary is the text of a token contexts prefer to end on. Empty
	// means contexts are cut at ContextSize.
	Boundary string
	// PadToken defaults to the tokenizer's pad token.
	PadToken string
	Unitrim  bool
}

func NewTextsTokenizer() TextsTokenizer {
	return TextsTokenizer{
		ContextSize: 1024,
		Boundary:    "\n",
		Unitrim:     true,
	}
}

// getAndCheckToken looks s up in the vocabulary, and failing that
// encodes it and checks that it is a single token.
func getAndCheckToken(fast *tokenizer.Fast, s string,
	id string) (types.Token, error) {
	s = strings.ReplaceAll(s, "\\n", "\n")
	if token, ok := fast.TokenToID(s); ok {
		return token, nil
	}
	tokens, err := fast.EncodeText(s)
	if err != nil {
		return 0, err
	}
	if len(tokens) != 1 {
		return 0, fmt.Errorf("'%s' is not a valid token for %s", s, id)
	}
	return tokens[0], nil
}

type ContextsIterator func() types.Tokens

// TokenizeTexts encodes each text as a full sequence, specials included,
// and returns an iterator over contexts of exactly ContextSize tokens.
// A context ends after the last boundary token it holds; without one it
// is cut at ContextSize, pulled back to a whole character when Unitrim is
// set. The final context is padded.
func (tt TextsTokenizer) TokenizeTexts(fast *tokenizer.Fast,
	nextText TextsIterator) (ContextsIterator, error) {
	if tt.ContextSize < 1 {
		return nil, errors.New("context size must be greater than 0")
	}
	padText := tt.PadToken
	if padText == "" {
		padText = fast.SpecialTokens().Pad
	}
	padToken, err := getAndCheckToken(fast, padText, "PadToken")
	if err != nil {
		return nil, err
	}
	var boundary types.Token
	haveBoundary := tt.Boundary != ""
	if haveBoundary {
		if boundary, err = getAndCheckToken(fast, tt.Boundary,
			"Boundary"); err != nil {
			return nil, err
		}
	}

	tokenized := make(chan types.Tokens, 4)
	go func() {
		defer close(tokenized)
		for {
			text, ok := nextText()
			if !ok {
				return
			}
			encoded, err := fast.Encode(text)
			if err != nil {
				log.Printf("Error encoding text: %s", err)
				continue
			}
			tokenized <- encoded
		}
	}()

	contextSize := tt.ContextSize
	var buffer types.Tokens
	done := false
	pad := func(context types.Tokens) types.Tokens {
		for len(context) < contextSize {
			context = append(context, padToken)
		}
		return context
	}
	return func() types.Tokens {
		for len(buffer) < contextSize && !done {
			if encoded, ok := <-tokenized; ok {
				buffer = append(buffer, encoded...)
			} else {
				done = true
			}
		}
		if len(buffer) == 0 {
			return nil
		}
		if done && len(buffer) <= contextSize {
			context := pad(append(types.Tokens{}, buffer...))
			buffer = buffer[:0]
			return context
		}
		chunk := buffer[:contextSize]
		cut := contextSize
		boundaryFound := false
		if haveBoundary {
			for idx := len(chunk) - 1; idx > 0; idx-- {
				if chunk[idx] == boundary {
					cut = idx + 1
					boundaryFound = true
					break
				}
			}
		}
		if !boundaryFound && tt.Unitrim {
			if trimmed := hf_bpe.TrimUnicode(fast, chunk); len(trimmed) > 0 {
				cut = len(trimmed)
			}
		}
		context := pad(append(types.Tokens{}, buffer[:cut]...))
		buffer = append(buffer[:0], buffer[cut:]...)
		return context
	}, nil
}

// WriteContexts serializes contexts to outPath, keeping roughly sampling
// percent of them, and returns the number of tokens written.
func WriteContexts(outPath string, nextContext ContextsIterator,
	use32Bit bool, sampling int, show func(types.Tokens)) (int, error) {
	outFile, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	defer outFile.Close()
	totalTokens := 0
	for samplingIdx := 0; ; samplingIdx++ {
		context := nextContext()
		if context == nil {
			break
		}
		if sampling != 100 && samplingIdx%20 >= sampling/5 {
			continue
		}
		if show != nil {
			show(context)
		}
		binContext, err := context.ToBin(use32Bit)
		if err != nil {
			return totalTokens, err
		}
		if _, err := outFile.Write(*binContext); err != nil {
			return totalTokens, err
		}
		totalTokens += len(context)
	}
	return totalTokens, outFile.Sync()
}

func main() {
	familyOpt := flag.String("family", "bart",
		fmt.Sprintf("tokenizer family %v", models.Families()))
	modelId := flag.String("model", "facebook/bart-base",
		"model id, URL or local directory holding the tokenizer files")
	contextSize := flag.Int("context", 1024, "context size")
	showContexts := flag.Bool("show_contexts", false,
		"show contexts as they are tokenized")
	padToken := flag.String("pad", "",
		"pad token to pad out contexts, defaults to the tokenizer's")
	boundaryToken := flag.String("boundary", "\n",
		"boundary token to end contexts on, empty for hard cuts")
	outputFile := flag.String("output", "tokenized.chunk",
		"tokenized output file")
	inputDir := flag.String("input", "",
		"input directory")
	noUnitrim := flag.Bool("no_unitrim", false,
		"do not trim contexts to valid unicode")
	out32 := flag.Bool("out32", false,
		"force output tokens to be written as 32-bit")
	forceRetokenization := flag.Bool("retokenize", false,
		"force retokenization even if tokenizer output is newer")
	sanitize := flag.Bool("sanitize", false,
		"sanitize inputs of whitespace issues")
	reorderPaths := flag.String("reorder", "",
		"reorder input files [size_ascending, size_descending, "+
			"path_ascending, path_descending, random, none]")
	sampling := flag.Int("sampling", 100,
		"percentage of contexts to keep, from 0 to 100")
	flag.Parse()
	if *inputDir == "" {
		flag.Usage()
		log.Fatal("Must provide -input for directory source")
	}
	if *sampling > 100 || *sampling < 0 {
		log.Fatal("Sampling parameter out of the 0-100 bounds")
	}

	pathInfos, err := GlobTexts(*inputDir)
	if err != nil {
		log.Fatal(err)
	}
	if err := ReorderPaths(pathInfos, *reorderPaths); err != nil {
		log.Fatal(err)
	}
	if !*forceRetokenization {
		if outStat, outErr := os.Stat(*outputFile); outErr == nil {
			newest, _ := FindNewestPath(pathInfos)
			if newest.ModTime.Before(outStat.ModTime()) {
				log.Printf("Newest source `%s` is older than `%s`, "+
					"not retokenizing. "+
					"Use -retokenize to force retokenization.",
					newest.Path, *outputFile)
				os.Exit(0)
			}
		} else if !errors.Is(outErr, os.ErrNotExist) {
			log.Fatal(outErr)
		}
	}

	fast, err := models.LoadTokenizer(*familyOpt, *modelId)
	if err != nil {
		log.Fatal(err)
	}
	defer fast.Close()
	log.Printf("Tokenizer: %s (%s backend)", fast.NameOrPath(),
		fast.BackendName())
	log.Printf("Tokenizer input source: %s, %d texts", *inputDir,
		len(pathInfos))
	log.Printf("Tokenizer output: %s", *outputFile)

	textsTokenizer := NewTextsTokenizer()
	textsTokenizer.ContextSize = *contextSize
	textsTokenizer.Boundary = *boundaryToken
	textsTokenizer.PadToken = *padToken
	textsTokenizer.Unitrim = !*noUnitrim

	begin := time.Now()
	contexts, err := textsTokenizer.TokenizeTexts(fast,
		ReadTexts(pathInfos, *sanitize))
	if err != nil {
		log.Fatal(err)
	}
	var show func(types.Tokens)
	if *showContexts {
		show = func(context types.Tokens) {
			log.Printf("%d tokens\n%s", len(context),
				fast.Decode(context, false))
		}
	}
	use32Bit := *out32 || fast.VocabSize() > 65536
	total, err := WriteContexts(*outputFile, contexts, use32Bit, *sampling,
		show)
	if err != nil {
		log.Fatal(err)
	}
	duration := time.Since(begin).Seconds()
	log.Printf("%s tokens in %0.2fs, %0.2f tokens/s",
		humanize.Comma(int64(total)), duration, float64(total)/duration)
}
