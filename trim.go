package hf_bpe

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"github.com/wbrown/hf_bpe/types"
)

type TrimDirection uint

const (
	TrimTop    TrimDirection = iota
	TrimBottom TrimDirection = iota
	TrimNone   TrimDirection = iota
)

// TextCodec is the part of a tokenizer the trimming helpers need: plain
// text in and out, with no sequence delimiters added.
type TextCodec interface {
	EncodeText(text string) (types.Tokens, error)
	DecodeText(tokens types.Tokens) string
}

// TrimNewlines drops whole lines from the top or the bottom of the decoded
// tokens until the re-encoded remainder fits in limit tokens.
func TrimNewlines(codec TextCodec, tokens types.Tokens,
	direction TrimDirection, limit uint) (types.Tokens, error) {
	if uint(len(tokens)) <= limit {
		return tokens, nil
	} else if direction == TrimNone {
		return types.Tokens{}, nil
	}
	lines := strings.Split(codec.DecodeText(tokens), "\n")
	var start, end, step int
	switch direction {
	case TrimTop:
		start, end, step = len(lines)-1, -1, -1
	case TrimBottom:
		start, end, step = 0, len(lines), 1
	}
	accTokens := make(types.Tokens, 0, limit)
	for idx := start; idx != end; idx += step {
		line := lines[idx]
		switch direction {
		case TrimTop:
			line = "\n" + line
		case TrimBottom:
			line = line + "\n"
		}
		newTokens, err := codec.EncodeText(line)
		if err != nil {
			return accTokens, err
		}
		if len(newTokens)+len(accTokens) > int(limit) {
			return accTokens, nil
		}
		switch direction {
		case TrimTop:
			accTokens = append(newTokens, accTokens...)
		case TrimBottom:
			accTokens = append(accTokens, newTokens...)
		}
	}
	return accTokens, nil
}

func newSentenceDoc(text string) (*prose.Document, error) {
	return prose.NewDocument(
		text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
}

// TrimSentences drops whole sentences from the top or the bottom of the
// decoded tokens until what remains encodes to fewer than limit tokens.
func TrimSentences(codec TextCodec, tokens types.Tokens,
	direction TrimDirection, limit uint) (types.Tokens, error) {
	trimmed := make(types.Tokens, 0)
	if uint(len(tokens)) <= limit {
		return tokens, nil
	} else if direction == TrimNone {
		return trimmed, nil
	}
	doc, err := newSentenceDoc(codec.DecodeText(tokens))
	if err != nil {
		return trimmed, err
	}
	text := doc.Text
	sentences := doc.Sentences()
	countTokens := func(s string) (uint, error) {
		encoded, encErr := codec.EncodeText(s)
		return uint(len(encoded)), encErr
	}

	switch direction {
	case TrimTop:
		textEnd := len(text)
		for idx := len(sentences) - 1; idx >= 0; idx-- {
			sentenceIdx := strings.LastIndex(text, sentences[idx].Text)
			if sentenceIdx < 0 {
				continue
			}
			if sentenceIdx > 0 && unicode.IsSpace(rune(text[sentenceIdx])) {
				sentenceIdx -= 1
			}
			tokCt, encErr := countTokens(text[sentenceIdx:])
			if encErr != nil {
				return trimmed, encErr
			}
			if tokCt >= limit {
				return codec.EncodeText(text[textEnd:])
			}
			textEnd = sentenceIdx - 1
			if textEnd < 0 {
				textEnd = 0
			}
		}
	case TrimBottom:
		textBegin, lastSentence := 0, 0
		for _, sentence := range sentences {
			offset := strings.Index(text[textBegin:], sentence.Text)
			if offset < 0 {
				continue
			}
			sentenceEnd := textBegin + offset + len(sentence.Text)
			if sentenceEnd < len(text) && text[sentenceEnd] == '\n' {
				sentenceEnd += 1
			}
			tokCt, encErr := countTokens(text[:sentenceEnd])
			if encErr != nil {
				return trimmed, encErr
			}
			if tokCt >= limit {
				return codec.EncodeText(text[:lastSentence])
			}
			lastSentence = sentenceEnd
			textBegin = sentenceEnd
		}
	}
	return trimmed, nil
}

// TrimUnicode drops up to utf8.UTFMax tokens from the end of tokens while
// the decoded text ends in a replacement rune, which is what a cut through
// a multi-byte sequence leaves behind.
func TrimUnicode(codec TextCodec, tokens types.Tokens) types.Tokens {
	for dropped := 0; dropped < utf8.UTFMax && len(tokens) > 0; dropped++ {
		if !strings.HasSuffix(codec.DecodeText(tokens), "\uFFFD") {
			return tokens
		}
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}
