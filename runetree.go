package hf_bpe

import (
	"sort"
	"strings"
	"unicode"
)

// RuneNode is a node in the trie used to spot special tokens in raw text
// before pre-tokenization splits them apart.
type RuneNode struct {
	rune     rune               // The rune this node represents.
	runes    []rune             // The prior runes that led to this node.
	terminal bool               // If a special token ends at this node.
	childs   map[rune]*RuneNode // The child nodes.
}

func NewRuneTree(words []string) *RuneNode {
	root := &RuneNode{
		runes:  []rune{},
		childs: make(map[rune]*RuneNode),
	}
	for _, word := range words {
		root.insert(word)
	}
	return root
}

func (root *RuneNode) insert(word string) {
	keyRunes := []rune(word)
	node := root
	for idx, r := range keyRunes {
		child, ok := node.childs[r]
		if !ok {
			child = &RuneNode{
				rune:   r,
				runes:  keyRunes[:idx+1],
				childs: make(map[rune]*RuneNode),
			}
			node.childs[r] = child
		}
		node = child
	}
	if node != root {
		node.terminal = true
	}
}

// longestMatch returns the rune length of the longest special token that
// starts at runes[start], or 0 when none does.
func (root *RuneNode) longestMatch(runes []rune, start int) int {
	if root == nil {
		return 0
	}
	longest := 0
	node := root
	for idx := start; idx < len(runes); idx++ {
		child, ok := node.childs[runes[idx]]
		if !ok {
			break
		}
		if child.terminal {
			longest = idx - start + 1
		}
		node = child
	}
	return longest
}

// Segment is a run of plain text, or one word of the tree matched in it.
type Segment struct {
	Text    string
	Special bool
}

// Split cuts text around the longest tree words found in it, scanning left
// to right. Text before a word in lstrip loses its trailing whitespace.
func (root *RuneNode) Split(text string, lstrip map[string]bool) []Segment {
	runes := []rune(text)
	segments := make([]Segment, 0, 4)
	start := 0
	for idx := 0; idx < len(runes); {
		matched := root.longestMatch(runes, idx)
		if matched == 0 {
			idx++
			continue
		}
		before := string(runes[start:idx])
		special := string(runes[idx : idx+matched])
		if lstrip[special] {
			before = strings.TrimRightFunc(before, unicode.IsSpace)
		}
		if before != "" {
			segments = append(segments, Segment{Text: before})
		}
		segments = append(segments, Segment{Text: special, Special: true})
		idx += matched
		start = idx
	}
	if start < len(runes) {
		segments = append(segments, Segment{Text: string(runes[start:])})
	}
	return segments
}

func (node *RuneNode) sortedChildren() []rune {
	keys := make([]rune, 0, len(node.childs))
	for r := range node.childs {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Represent the tree as a string by traversing the tree, and using tree
// characters to represent the tree structure.
func (node *RuneNode) string(level int) string {
	if node == nil {
		return ""
	}
	s := ""
	if node.rune != 0 {
		s = string(node.rune)
	}
	if len(node.childs) == 1 && !node.terminal {
		// Collapse single-child chains onto one line.
		for _, r := range node.sortedChildren() {
			s += node.childs[r].string(level)
		}
		return s
	}
	level += 1
	s += "\n"
	children := node.sortedChildren()
	for idx, r := range children {
		childPrefix := strings.Repeat("| ", level-1)
		if idx == len(children)-1 {
			childPrefix += "└─"
		} else {
			childPrefix += "├─"
		}
		s += childPrefix + node.childs[r].string(level)
	}
	return s
}

func (node *RuneNode) String() string {
	return node.string(0)
}
