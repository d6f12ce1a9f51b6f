package index

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// TFIDFIndex implements LexicalIndex with in-memory TF-IDF vectors and
// cosine similarity. All term weights are non-negative, so cosine
// scores land in [0,1] with no further normalization needed.
type TFIDFIndex struct {
	mu        sync.RWMutex
	termFreqs map[int64]map[string]float64
	docFreq   map[string]int
	closed    bool
}

var _ LexicalIndex = (*TFIDFIndex)(nil)

var lexTokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewTFIDFIndex creates an empty TF-IDF index.
func NewTFIDFIndex() *TFIDFIndex {
	return &TFIDFIndex{
		termFreqs: make(map[int64]map[string]float64),
		docFreq:   make(map[string]int),
	}
}

// Add indexes documents keyed by entity ID. Existing IDs are replaced.
func (s *TFIDFIndex) Add(_ context.Context, ids []int64, texts []string) error {
	if len(ids) != len(texts) {
		return fmt.Errorf("ids and texts length mismatch: %d vs %d", len(ids), len(texts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	for i, id := range ids {
		if old, exists := s.termFreqs[id]; exists {
			for term := range old {
				if s.docFreq[term]--; s.docFreq[term] <= 0 {
					delete(s.docFreq, term)
				}
			}
		}

		tf := make(map[string]float64)
		for _, term := range lexTokenize(texts[i]) {
			tf[term]++
		}
		for term := range tf {
			s.docFreq[term]++
		}
		s.termFreqs[id] = tf
	}

	return nil
}

// Search returns up to k hits sorted by descending cosine score,
// ties broken by ascending ID.
func (s *TFIDFIndex) Search(_ context.Context, query string, k int) ([]LexicalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if k <= 0 || len(s.termFreqs) == 0 {
		return []LexicalHit{}, nil
	}

	queryTF := make(map[string]float64)
	for _, term := range lexTokenize(query) {
		queryTF[term]++
	}
	if len(queryTF) == 0 {
		return []LexicalHit{}, nil
	}

	n := float64(len(s.termFreqs))
	queryVec := make(map[string]float64, len(queryTF))
	var queryNorm float64
	for term, tf := range queryTF {
		df, ok := s.docFreq[term]
		if !ok {
			continue
		}
		w := tf * idf(n, df)
		queryVec[term] = w
		queryNorm += w * w
	}
	if queryNorm == 0 {
		return []LexicalHit{}, nil
	}
	queryNorm = math.Sqrt(queryNorm)

	var hits []LexicalHit
	for id, tf := range s.termFreqs {
		var dot, docNorm float64
		for term, freq := range tf {
			w := freq * idf(n, s.docFreq[term])
			docNorm += w * w
			if qw, ok := queryVec[term]; ok {
				dot += w * qw
			}
		}
		if dot == 0 || docNorm == 0 {
			continue
		}
		score := dot / (queryNorm * math.Sqrt(docNorm))
		hits = append(hits, LexicalHit{ID: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed documents.
func (s *TFIDFIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.termFreqs)
}

// Close releases resources.
func (s *TFIDFIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func idf(n float64, df int) float64 {
	return math.Log(1 + n/float64(df))
}

// lexTokenize lowercases and splits snake_case/camelCase identifiers,
// matching how the semantic side tokenizes schema names.
func lexTokenize(text string) []string {
	var tokens []string
	for _, word := range lexTokenRegex.FindAllString(text, -1) {
		for _, part := range splitIdentifierParts(word) {
			if lower := strings.ToLower(part); lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func splitIdentifierParts(token string) []string {
	var parts []string
	for _, chunk := range strings.Split(token, "_") {
		if chunk == "" {
			continue
		}
		var current strings.Builder
		runes := []rune(chunk)
		for i, r := range runes {
			if i > 0 && unicode.IsUpper(r) {
				prevIsLower := unicode.IsLower(runes[i-1])
				nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (prevIsLower || nextIsLower) && current.Len() > 0 {
					parts = append(parts, current.String())
					current.Reset()
				}
			}
			current.WriteRune(r)
		}
		if current.Len() > 0 {
			parts = append(parts, current.String())
		}
	}
	return parts
}
