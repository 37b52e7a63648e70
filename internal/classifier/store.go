package classifier

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kozaktomas/face-touch/internal/constants"
	"github.com/kozaktomas/face-touch/internal/embedding"
)

// Options configures a Store.
type Options struct {
	Labels []Label // labels that must all have examples before Classify works
	K      int     // neighbours consulted per vote
	Index  string  // exact or hnsw
}

// Store accumulates labelled embeddings and classifies new ones by
// k-nearest-neighbour voting. Examples are never removed.
type Store struct {
	labels []Label
	k      int

	mu       sync.RWMutex
	index    Index
	labelOf  []Label
	counts   map[Label]int
	dim      int
	expected map[Label]bool
}

// NewStore creates an empty store. Without explicit labels it expects the two
// face touch labels.
func NewStore(opts Options) (*Store, error) {
	labels := opts.Labels
	if len(labels) == 0 {
		labels = []Label{NotTouching, Touching}
	}
	k := opts.K
	if k <= 0 {
		k = constants.DefaultNeighbors
	}
	index, err := NewIndex(opts.Index)
	if err != nil {
		return nil, err
	}

	expected := make(map[Label]bool, len(labels))
	for _, l := range labels {
		expected[l] = true
	}

	return &Store{
		labels:   slices.Clone(labels),
		k:        k,
		index:    index,
		counts:   make(map[Label]int, len(labels)),
		expected: expected,
	}, nil
}

// Add appends one example.
func (s *Store) Add(emb embedding.Embedding, label Label) error {
	if !s.expected[label] {
		return fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	if len(emb) == 0 {
		return fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		s.dim = len(emb)
	} else if len(emb) != s.dim {
		return fmt.Errorf("%w: got %d, store holds %d", ErrDimensionMismatch, len(emb), s.dim)
	}

	id := len(s.labelOf)
	s.index.Add(id, slices.Clone(emb))
	s.labelOf = append(s.labelOf, label)
	s.counts[label]++
	return nil
}

// Classify votes among the k nearest examples. Every expected label gets a
// confidence equal to its share of the votes, so confidences sum to 1.
// Ties go to the label with the smaller summed distance, then to label order.
func (s *Store) Classify(emb embedding.Embedding) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.labelOf) == 0 {
		return Result{}, fmt.Errorf("%w: store is empty", ErrInsufficientData)
	}
	for _, l := range s.labels {
		if s.counts[l] == 0 {
			return Result{}, fmt.Errorf("%w: no examples for label %q", ErrInsufficientData, l)
		}
	}
	if len(emb) != s.dim {
		return Result{}, fmt.Errorf("%w: got %d, store holds %d", ErrDimensionMismatch, len(emb), s.dim)
	}

	topK := min(s.k, len(s.labelOf))
	neighbors := s.index.Search(emb, topK)
	if len(neighbors) == 0 {
		return Result{}, fmt.Errorf("%w: index returned no neighbours", ErrInsufficientData)
	}

	votes := make(map[Label]int, len(s.labels))
	distances := make(map[Label]float64, len(s.labels))
	for _, n := range neighbors {
		l := s.labelOf[n.ID]
		votes[l]++
		distances[l] += n.Distance
	}

	result := Result{Confidences: make(map[Label]float64, len(s.labels))}
	best := -1
	for _, l := range s.labels {
		result.Confidences[l] = float64(votes[l]) / float64(len(neighbors))
		switch {
		case votes[l] > best:
			best = votes[l]
			result.Label = l
		case votes[l] == best && distances[l] < distances[result.Label]:
			result.Label = l
		}
	}
	return result, nil
}

// Count returns the total number of examples.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labelOf)
}

// CountByLabel returns the number of examples per expected label.
func (s *Store) CountByLabel() map[Label]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Label]int, len(s.labels))
	for _, l := range s.labels {
		out[l] = s.counts[l]
	}
	return out
}
