package index

import (
	"sort"
	"strings"
	"time"
)

type trieNode struct {
	children    map[rune]*trieNode
	isEndOfWord bool
	documentIDs map[string]struct{}
}

func newTrieNode() *trieNode {
	return &trieNode{
		children:    make(map[rune]*trieNode),
		documentIDs: make(map[string]struct{}),
	}
}

// Trie maps token prefixes to the documents containing a token with that prefix.
// A Trie is written only while it is being built; once published it is read-only
// and safe for concurrent use.
type Trie struct {
	root *trieNode

	generation uint64
	builtAt    time.Time
	documents  int
	tokens     int
}

func NewTrie() *Trie {
	return &Trie{root: newTrieNode()}
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// Insert adds documentID to every node along token's path. Empty tokens are ignored.
func (t *Trie) Insert(token string, documentID string) {
	token = normalize(token)
	if token == "" {
		return
	}

	current := t.root
	for _, char := range token {
		child, ok := current.children[char]
		if !ok {
			child = newTrieNode()
			current.children[char] = child
		}
		current = child
		current.documentIDs[documentID] = struct{}{}
	}
	current.isEndOfWord = true
	t.tokens++
}

// Search returns the sorted identifiers of documents with a token starting with prefix.
func (t *Trie) Search(prefix string) []string {
	node := t.find(prefix)
	if node == nil {
		return nil
	}

	ids := make([]string, 0, len(node.documentIDs))
	for id := range node.documentIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

func (t *Trie) find(prefix string) *trieNode {
	prefix = normalize(prefix)
	if prefix == "" {
		return nil
	}

	current := t.root
	for _, char := range prefix {
		child, ok := current.children[char]
		if !ok {
			return nil
		}
		current = child
	}

	return current
}

func (t *Trie) Generation() uint64 {
	return t.generation
}

func (t *Trie) BuiltAt() time.Time {
	return t.builtAt
}

// Documents is the number of documents the trie was built from.
func (t *Trie) Documents() int {
	return t.documents
}

// Tokens is the number of non-empty token insertions.
func (t *Trie) Tokens() int {
	return t.tokens
}
