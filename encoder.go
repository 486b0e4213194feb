package hf_bpe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru"
	"github.com/wbrown/hf_bpe/types"
)

const BPE_LRU_SZ = 65536

// SPLIT_REGEX is the GPT-2/BART pre-tokenization pattern. Go's regexp has no
// lookahead, so the `\s+(?!\S)` alternative is emulated afterwards by
// splitTrailingWhitespace.
const SPLIT_REGEX = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`
const SPM_SPLIT_REGEX = `▁+[^▁]*|[^▁]+`
const SPM_SPACE = "▁"
const REGEX_ERROR = "hf_bpe: error compiling regular expression: %w"

// Mode selects how raw text is mapped onto vocabulary symbols.
type Mode uint8

const (
	// ModeByteLevel maps every input byte to a printable rune first, as
	// GPT-2, RoBERTa and BART vocabularies expect.
	ModeByteLevel Mode = iota
	// ModeSentencePiece keeps runes as they are, marks spaces with `▁` and
	// falls back to `<0xNN>` byte pieces for unknown runes.
	ModeSentencePiece
)

type EncoderConfig struct {
	Mode           Mode
	AddPrefixSpace bool
	Specials       []string
	LStripSpecials []string
	UnkToken       string
	SplitRegex     string
	CacheSize      int
}

// BPEEncoder is the pure-Go byte-pair-encoding engine. It is what a
// tokenizer falls back to when no `tokenizer.json` backend can be built.
type BPEEncoder struct {
	Encoder      map[string]types.Token
	Decoder      map[types.Token]string
	BpeRanks     map[types.GPTPair]float64
	Specials     map[string]types.Token
	Cache        *lru.ARCCache
	mode         Mode
	pattern      *regexp.Regexp
	byteToRune   [256]rune
	runeToByte   map[rune]byte
	specialsTree *RuneNode
	lstrip       map[string]bool
	unk          *types.Token
	prefixSpace  bool
}

// BytesToUnicode returns the GPT-2 table that maps each byte onto a rune
// that is printable and not whitespace.
func BytesToUnicode() [256]rune {
	var table [256]rune
	assigned := make(map[int]bool, 256)
	for _, span := range [][2]int{{'!', '~'}, {'¡', '¬'}, {'®', 'ÿ'}} {
		for b := span[0]; b <= span[1]; b++ {
			table[b] = rune(b)
			assigned[b] = true
		}
	}
	n := 0
	for b := 0; b < 256; b++ {
		if !assigned[b] {
			table[b] = rune(256 + n)
			n++
		}
	}
	return table
}

// ParseVocab unmarshals a `vocab.json` mapping of symbol to id.
func ParseVocab(data []byte) (map[string]types.Token, error) {
	vocab := make(map[string]types.Token)
	if err := json.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("error unmarshalling vocab: %w", err)
	}
	return vocab, nil
}

// ParseMerges reads a merge table, either the `merges.txt` form (one
// space-separated pair per line, optional `#version` header) or the JSON
// forms `[["a","b"], ...]` and `["a b", ...]`. Order is rank.
func ParseMerges(data []byte) ([]types.GPTPair, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return parseMergesJSON(trimmed)
	}
	merges := make([]types.GPTPair, 0, 1024)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#version") {
			continue
		}
		leftRight := strings.SplitN(line, " ", 2)
		if len(leftRight) != 2 {
			return nil, fmt.Errorf("malformed merge on line %d: %q",
				lineNo, line)
		}
		merges = append(merges, types.GPTPair{
			Left:  leftRight[0],
			Right: leftRight[1],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return merges, nil
}

func parseMergesJSON(data []byte) ([]types.GPTPair, error) {
	var pairs [][]string
	if err := json.Unmarshal(data, &pairs); err == nil {
		merges := make([]types.GPTPair, 0, len(pairs))
		for idx, pair := range pairs {
			if len(pair) != 2 {
				return nil, fmt.Errorf("malformed merge at index %d", idx)
			}
			merges = append(merges, types.GPTPair{Left: pair[0], Right: pair[1]})
		}
		return merges, nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, errors.New(
			"could not parse merges, expected []string or [][]string")
	}
	return ParseMerges([]byte(strings.Join(lines, "\n")))
}

// NewBPEEncoderFromBytes parses the raw vocabulary and merges and builds an
// encoder from them.
func NewBPEEncoderFromBytes(vocabData []byte, mergesData []byte,
	config EncoderConfig) (*BPEEncoder, error) {
	vocab, err := ParseVocab(vocabData)
	if err != nil {
		return nil, err
	}
	merges, err := ParseMerges(mergesData)
	if err != nil {
		return nil, err
	}
	return NewBPEEncoder(vocab, merges, config)
}

// NewBPEEncoder builds an encoder over an already parsed vocabulary. The
// vocabulary map is copied; special tokens missing from it are appended
// after the highest id.
func NewBPEEncoder(vocab map[string]types.Token, merges []types.GPTPair,
	config EncoderConfig) (*BPEEncoder, error) {
	if len(vocab) == 0 {
		return nil, errors.New("hf_bpe: empty vocabulary")
	}
	encoderTokens := make(map[string]types.Token, len(vocab)+len(config.Specials))
	tokensDecoder := make(map[types.Token]string, len(vocab)+len(config.Specials))
	maxId := types.Token(0)
	for text, token := range vocab {
		encoderTokens[text] = token
		tokensDecoder[token] = text
		if token > maxId {
			maxId = token
		}
	}

	bpeRanks := make(map[types.GPTPair]float64, len(merges))
	for rank, pair := range merges {
		if _, seen := bpeRanks[pair]; !seen {
			bpeRanks[pair] = float64(rank)
		}
	}

	specials := make(map[string]types.Token, len(config.Specials))
	for _, special := range config.Specials {
		if special == "" {
			continue
		}
		token, ok := encoderTokens[special]
		if !ok {
			maxId++
			token = maxId
			encoderTokens[special] = token
			tokensDecoder[token] = special
		}
		specials[special] = token
	}
	lstrip := make(map[string]bool, len(config.LStripSpecials))
	for _, special := range config.LStripSpecials {
		lstrip[special] = true
	}

	splitRegex := config.SplitRegex
	if splitRegex == "" {
		if config.Mode == ModeSentencePiece {
			splitRegex = SPM_SPLIT_REGEX
		} else {
			splitRegex = SPLIT_REGEX
		}
	}
	pat, err := regexp.Compile(splitRegex)
	if err != nil {
		return nil, fmt.Errorf(REGEX_ERROR, err)
	}

	cacheSize := config.CacheSize
	if cacheSize <= 0 {
		cacheSize = BPE_LRU_SZ
	}
	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, err
	}

	byteToRune := BytesToUnicode()
	runeToByte := make(map[rune]byte, 256)
	for b, r := range byteToRune {
		runeToByte[r] = byte(b)
	}

	var unk *types.Token
	if config.UnkToken != "" {
		if token, ok := encoderTokens[config.UnkToken]; ok {
			unk = &token
		}
	}

	specialsArr := make([]string, 0, len(specials))
	for special := range specials {
		specialsArr = append(specialsArr, special)
	}
	sort.Strings(specialsArr)

	return &BPEEncoder{
		Encoder:      encoderTokens,
		Decoder:      tokensDecoder,
		BpeRanks:     bpeRanks,
		Specials:     specials,
		Cache:        cache,
		mode:         config.Mode,
		pattern:      pat,
		byteToRune:   byteToRune,
		runeToByte:   runeToByte,
		specialsTree: NewRuneTree(specialsArr),
		lstrip:       lstrip,
		unk:          unk,
		prefixSpace:  config.AddPrefixSpace,
	}, nil
}

// segment cuts text around special tokens, which never go through BPE.
func (encoder *BPEEncoder) segment(text string) []Segment {
	if len(encoder.Specials) == 0 {
		return []Segment{{Text: text}}
	}
	return encoder.specialsTree.Split(text, encoder.lstrip)
}

func isWhitespace(word string) bool {
	for _, r := range word {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return len(word) > 0
}

// splitTrailingWhitespace gives the last rune of a whitespace run back to
// the word that follows it, so "a  b" splits as "a", " ", " b".
func splitTrailingWhitespace(words []string) []string {
	out := make([]string, 0, len(words)+4)
	for idx := 0; idx < len(words); idx++ {
		word := words[idx]
		if idx+1 < len(words) && isWhitespace(word) &&
			utf8.RuneCountInString(word) > 1 && !isWhitespace(words[idx+1]) {
			last, size := utf8.DecodeLastRuneInString(word)
			out = append(out, word[:len(word)-size])
			if last == ' ' {
				words[idx+1] = " " + words[idx+1]
			} else {
				out = append(out, string(last))
			}
			continue
		}
		out = append(out, word)
	}
	return out
}

// SplitWords pre-tokenizes a run of text that contains no special tokens.
func (encoder *BPEEncoder) SplitWords(text string) []string {
	if encoder.mode == ModeSentencePiece {
		text = strings.ReplaceAll(text, " ", SPM_SPACE)
	}
	idxes := encoder.pattern.FindAllStringIndex(text, -1)
	words := make([]string, 0, len(idxes))
	for _, idx := range idxes {
		words = append(words, text[idx[0]:idx[1]])
	}
	if encoder.mode == ModeSentencePiece {
		return words
	}
	return splitTrailingWhitespace(words)
}

func (encoder *BPEEncoder) toUnicode(word string) string {
	if encoder.mode == ModeSentencePiece {
		return word
	}
	var sb strings.Builder
	sb.Grow(len(word) * 2)
	for idx := 0; idx < len(word); idx++ {
		sb.WriteRune(encoder.byteToRune[word[idx]])
	}
	return sb.String()
}

// lookup maps merged symbols to ids, using byte pieces and then the unknown
// token for symbols outside the vocabulary.
func (encoder *BPEEncoder) lookup(symbols []string) types.Tokens {
	tokens := make(types.Tokens, 0, len(symbols))
	for _, symbol := range symbols {
		if token, ok := encoder.Encoder[symbol]; ok {
			tokens = append(tokens, token)
			continue
		}
		fellBack := false
		if encoder.mode == ModeSentencePiece {
			fellBack = true
			byteTokens := make(types.Tokens, 0, len(symbol))
			for _, b := range []byte(symbol) {
				token, ok := encoder.Encoder[fmt.Sprintf("<0x%02X>", b)]
				if !ok {
					fellBack = false
					break
				}
				byteTokens = append(byteTokens, token)
			}
			if fellBack {
				tokens = append(tokens, byteTokens...)
			}
		}
		if !fellBack && encoder.unk != nil {
			tokens = append(tokens, *encoder.unk)
		}
	}
	return tokens
}

// ToBPE
// Given one pre-split word in vocabulary space, repeatedly merges the lowest
// ranked adjacent pair and returns the resulting Tokens.
func (encoder *BPEEncoder) ToBPE(word string) types.Tokens {
	if cached, ok := encoder.Cache.Get(word); ok {
		return cached.(types.Tokens)
	}
	symbols := make([]string, 0, len(word))
	for _, r := range word {
		symbols = append(symbols, string(r))
	}
	for len(symbols) > 1 {
		bestRank := math.Inf(1)
		bestIdx := -1
		for idx := 0; idx < len(symbols)-1; idx++ {
			rank, ok := encoder.BpeRanks[types.GPTPair{
				Left: symbols[idx], Right: symbols[idx+1]}]
			if ok && rank < bestRank {
				bestRank = rank
				bestIdx = idx
			}
		}
		if bestIdx < 0 {
			break
		}
		left, right := symbols[bestIdx], symbols[bestIdx+1]
		merged := make([]string, 0, len(symbols))
		for idx := 0; idx < len(symbols); {
			if idx < len(symbols)-1 && symbols[idx] == left &&
				symbols[idx+1] == right {
				merged = append(merged, left+right)
				idx += 2
			} else {
				merged = append(merged, symbols[idx])
				idx++
			}
		}
		symbols = merged
	}
	tokens := encoder.lookup(symbols)
	encoder.Cache.Add(word, tokens)
	return tokens
}

// Encode encodes text into Tokens. No begin or end of sequence tokens are
// added; that is the caller's post-processing.
func (encoder *BPEEncoder) Encode(text string) types.Tokens {
	return encoder.encode(text, encoder.prefixSpace)
}

func (encoder *BPEEncoder) encode(text string, prefixSpace bool) types.Tokens {
	tokens := make(types.Tokens, 0, len(text)/3+1)
	for idx, seg := range encoder.segment(text) {
		if seg.Special {
			tokens = append(tokens, encoder.Specials[seg.Text])
			continue
		}
		chunk := seg.Text
		if idx == 0 && prefixSpace && !strings.HasPrefix(chunk, " ") {
			chunk = " " + chunk
		}
		for _, word := range encoder.SplitWords(chunk) {
			tokens = append(tokens, encoder.ToBPE(encoder.toUnicode(word))...)
		}
	}
	return tokens
}

// EncodeReader encodes everything readable from reader, a line at a time.
// Only the first line gets a prefix space.
func (encoder *BPEEncoder) EncodeReader(reader io.Reader) (types.Tokens, error) {
	buffered := bufio.NewReaderSize(reader, 64*1024)
	encoded := make(types.Tokens, 0, 4096)
	prefixSpace := encoder.prefixSpace
	for {
		line, err := buffered.ReadString('\n')
		if len(line) > 0 {
			encoded = append(encoded, encoder.encode(line, prefixSpace)...)
			prefixSpace = false
		}
		if err == io.EOF {
			return encoded, nil
		} else if err != nil {
			return encoded, err
		}
	}
}

// Get
// Looks up text in the Encoder, and returns the Token representation of it.
// If the text is not found, then nil is returned.
func (encoder *BPEEncoder) Get(text string) *types.Token {
	if token, ok := encoder.Encoder[text]; !ok {
		return nil
	} else {
		return &token
	}
}

func (encoder *BPEEncoder) TokenToID(text string) (types.Token, bool) {
	token, ok := encoder.Encoder[text]
	return token, ok
}

func (encoder *BPEEncoder) IDToToken(token types.Token) (string, bool) {
	text, ok := encoder.Decoder[token]
	return text, ok
}

func (encoder *BPEEncoder) VocabSize() int {
	return len(encoder.Encoder)
}

// Decode Tokens back into a string. Ids that are not in the vocabulary are
// skipped, and byte sequences that are not valid UTF-8 are replaced.
func (encoder *BPEEncoder) Decode(tokens types.Tokens) string {
	if encoder.mode == ModeSentencePiece {
		return encoder.decodeSentencePiece(tokens)
	}
	decoded := make([]byte, 0, len(tokens)*4)
	for _, token := range tokens {
		piece, ok := encoder.Decoder[token]
		if !ok {
			continue
		}
		if _, special := encoder.Specials[piece]; special {
			decoded = append(decoded, piece...)
			continue
		}
		for _, r := range piece {
			if b, ok := encoder.runeToByte[r]; ok {
				decoded = append(decoded, b)
			} else {
				decoded = utf8.AppendRune(decoded, r)
			}
		}
	}
	return strings.ToValidUTF8(string(decoded), "�")
}

func (encoder *BPEEncoder) decodeSentencePiece(tokens types.Tokens) string {
	decoded := make([]byte, 0, len(tokens)*4)
	for _, token := range tokens {
		piece, ok := encoder.Decoder[token]
		if !ok {
			continue
		}
		if len(piece) == 6 && strings.HasPrefix(piece, "<0x") &&
			strings.HasSuffix(piece, ">") {
			if b, err := strconv.ParseUint(piece[3:5], 16, 8); err == nil {
				decoded = append(decoded, byte(b))
				continue
			}
		}
		decoded = append(decoded, piece...)
	}
	text := strings.ReplaceAll(
		strings.ToValidUTF8(string(decoded), "�"), SPM_SPACE, " ")
	if encoder.prefixSpace {
		text = strings.TrimPrefix(text, " ")
	}
	return text
}

// EncodeText and DecodeText satisfy TextCodec.
func (encoder *BPEEncoder) EncodeText(text string) (types.Tokens, error) {
	return encoder.Encode(text), nil
}

func (encoder *BPEEncoder) DecodeText(tokens types.Tokens) string {
	return encoder.Decode(tokens)
}
