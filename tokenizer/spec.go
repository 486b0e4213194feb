// Package tokenizer is the generic fast tokenizer engine. A model family
// plugs in by handing it a Spec: the file names it reads, where pretrained
// checkpoints keep them, the longest input each checkpoint accepts, its
// special tokens, and the slow implementation to fall back to when no
// `tokenizer.json` is usable.
package tokenizer

import (
	"sort"

	"github.com/wbrown/hf_bpe/resources"
)

// File kinds, the keys of Spec.VocabFilesNames.
const (
	VocabFile            = "vocab_file"
	MergesFile           = "merges_file"
	TokenizerFile        = "tokenizer_file"
	SentencePieceFile    = "sentencepiece_file"
	TokenizerConfigFile  = "tokenizer_config_file"
	SpecialTokensMapFile = "special_tokens_map_file"
	TokenizerConfigName  = "tokenizer_config.json"
	SpecialTokensMapName = "special_tokens_map.json"
	defaultTokenizerJSON = "tokenizer.json"
)

// Spec is the per-family lookup data the engine is parameterized by.
type Spec struct {
	// Name is the family, used in log lines and saved configs.
	Name string
	// VocabFilesNames maps a file kind to the file name on disk.
	VocabFilesNames map[string]string
	// PretrainedVocabFilesMap maps a file kind to model id to URL.
	PretrainedVocabFilesMap map[string]map[string]string
	// MaxModelInputSizes maps a model id to its positional limit.
	MaxModelInputSizes map[string]int
	// SlowTokenizerClass names the fallback implementation.
	SlowTokenizerClass string
	// Slow builds the fallback backend.
	Slow SlowFactory
	// SlowVocabFilesNames lists files only the fallback reads.
	SlowVocabFilesNames map[string]string
	SpecialTokens       SpecialTokens
	AddPrefixSpace      bool
}

// FileNames returns every file kind the engine may read, configs included.
func (spec *Spec) FileNames() map[string]string {
	names := make(map[string]string,
		len(spec.VocabFilesNames)+len(spec.SlowVocabFilesNames)+2)
	for kind, name := range spec.SlowVocabFilesNames {
		names[kind] = name
	}
	for kind, name := range spec.VocabFilesNames {
		names[kind] = name
	}
	names[TokenizerConfigFile] = TokenizerConfigName
	names[SpecialTokensMapFile] = SpecialTokensMapName
	return names
}

func sortedKinds(names map[string]string) []string {
	kinds := make([]string, 0, len(names))
	for kind := range names {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// ResolveURLs returns, for every kind in VocabFilesNames, the URL listed
// for id or the hub location when id is not listed.
func (spec *Spec) ResolveURLs(id string) map[string]string {
	urls := make(map[string]string, len(spec.VocabFilesNames))
	for kind, name := range spec.VocabFilesNames {
		if url, ok := spec.PretrainedVocabFilesMap[kind][id]; ok {
			urls[kind] = url
		} else {
			urls[kind] = resources.HubURL(id, name)
		}
	}
	return urls
}

// MaxInputSize returns the positional limit listed for id.
func (spec *Spec) MaxInputSize(id string) (int, bool) {
	size, ok := spec.MaxModelInputSizes[id]
	return size, ok
}

func (spec *Spec) tokenizerJSONName() string {
	if name, ok := spec.VocabFilesNames[TokenizerFile]; ok {
		return name
	}
	return defaultTokenizerJSON
}

// requests lists every file to try for id. All of them are optional:
// whether what was found is enough is up to backend selection.
func (spec *Spec) requests(id string) []resources.Request {
	names := spec.FileNames()
	reqs := make([]resources.Request, 0, len(names))
	for _, kind := range sortedKinds(names) {
		reqs = append(reqs, resources.Request{
			Name: names[kind],
			URL:  spec.PretrainedVocabFilesMap[kind][id],
			Flag: resources.RESOURCE_OPTIONAL,
		})
	}
	return reqs
}

// HubFilesMap builds a PretrainedVocabFilesMap that points every kind in
// names at the hub copy of each id.
func HubFilesMap(names map[string]string,
	ids ...string) map[string]map[string]string {
	filesMap := make(map[string]map[string]string, len(names))
	for kind, name := range names {
		urls := make(map[string]string, len(ids))
		for _, id := range ids {
			urls[id] = resources.HubURL(id, name)
		}
		filesMap[kind] = urls
	}
	return filesMap
}
