package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// BleveIndex implements LexicalIndex on an in-memory Bleve index.
// Bleve's TF-IDF scores are unbounded, so Search divides every score
// by the top hit's score; raw scores therefore land in (0,1].
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

var _ LexicalIndex = (*BleveIndex)(nil)

// bleveDocument is the document structure for Bleve indexing.
type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveIndex creates an in-memory Bleve lexical index.
func NewBleveIndex() (*BleveIndex, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &BleveIndex{index: idx}, nil
}

// Add indexes documents keyed by entity ID. Existing IDs are replaced.
func (b *BleveIndex) Add(_ context.Context, ids []int64, texts []string) error {
	if len(ids) != len(texts) {
		return fmt.Errorf("ids and texts length mismatch: %d vs %d", len(ids), len(texts))
	}
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for i, id := range ids {
		doc := bleveDocument{Content: texts[i]}
		if err := batch.Index(strconv.FormatInt(id, 10), doc); err != nil {
			return fmt.Errorf("failed to index document %d: %w", id, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search returns up to k hits sorted by descending normalized score.
func (b *BleveIndex) Search(ctx context.Context, queryStr string, k int) ([]LexicalHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(queryStr) == "" || k <= 0 {
		return []LexicalHit{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = k

	result, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(result.Hits) == 0 {
		return []LexicalHit{}, nil
	}

	topScore := result.Hits[0].Score
	hits := make([]LexicalHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric document ID %q: %w", hit.ID, err)
		}
		score := hit.Score
		if topScore > 0 {
			score = hit.Score / topScore
		}
		hits = append(hits, LexicalHit{ID: id, Score: score})
	}
	return hits, nil
}

// Len returns the number of indexed documents.
func (b *BleveIndex) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	count, _ := b.index.DocCount()
	return int(count)
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
