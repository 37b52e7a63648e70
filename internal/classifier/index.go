package classifier

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-touch/internal/constants"
	"github.com/kozaktomas/face-touch/internal/embedding"
)

// Index kinds accepted by NewIndex.
const (
	IndexExact = "exact"
	IndexHNSW  = "hnsw"
)

// Neighbor is a search hit: the example ID and its cosine distance to the query.
type Neighbor struct {
	ID       int
	Distance float64
}

// Index finds the nearest stored vectors to a query.
type Index interface {
	Add(id int, vec []float32)
	Search(query []float32, k int) []Neighbor
	Len() int
}

// NewIndex creates an index of the given kind.
func NewIndex(kind string) (Index, error) {
	switch kind {
	case "", IndexExact:
		return &exactIndex{}, nil
	case IndexHNSW:
		return newHNSWIndex(), nil
	default:
		return nil, fmt.Errorf("unknown index kind %q", kind)
	}
}

func sortNeighbors(n []Neighbor) {
	sort.Slice(n, func(i, j int) bool {
		if n[i].Distance != n[j].Distance {
			return n[i].Distance < n[j].Distance
		}
		return n[i].ID < n[j].ID
	})
}

// exactIndex compares the query against every vector. Session-sized stores hold
// a few hundred examples, so a linear scan per frame is cheap and exact.
type exactIndex struct {
	vectors [][]float32
}

func (x *exactIndex) Add(id int, vec []float32) {
	for len(x.vectors) <= id {
		x.vectors = append(x.vectors, nil)
	}
	x.vectors[id] = vec
}

func (x *exactIndex) Search(query []float32, k int) []Neighbor {
	all := make([]Neighbor, 0, len(x.vectors))
	for id, vec := range x.vectors {
		if vec == nil {
			continue
		}
		all = append(all, Neighbor{ID: id, Distance: embedding.CosineDistance(query, vec)})
	}
	sortNeighbors(all)
	if k < len(all) {
		all = all[:k]
	}
	return all
}

func (x *exactIndex) Len() int {
	return len(x.vectors)
}

// hnswIndex wraps the HNSW graph for long sessions with many examples. The
// graph holds one node per distinct vector: a burst of identical frames would
// otherwise collapse the graph's neighbour lists and hide whole classes.
// members lists the example IDs sharing each node's vector.
type hnswIndex struct {
	graph   *hnsw.Graph[int]
	byVec   map[string]int
	members [][]int
	count   int
}

func newHNSWIndex() *hnswIndex {
	g := hnsw.NewGraph[int]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = constants.HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return &hnswIndex{graph: g, byVec: make(map[string]int)}
}

// vectorKey encodes the exact bits of vec.
func vectorKey(vec []float32) string {
	b := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return string(b)
}

func (h *hnswIndex) Add(id int, vec []float32) {
	h.count++
	key := vectorKey(vec)
	if node, ok := h.byVec[key]; ok {
		h.members[node] = append(h.members[node], id)
		return
	}
	node := len(h.members)
	h.byVec[key] = node
	h.members = append(h.members, []int{id})
	h.graph.Add(hnsw.MakeNode(node, vec))
}

func (h *hnswIndex) Search(query []float32, k int) []Neighbor {
	nodes := h.graph.Search(query, k)
	out := make([]Neighbor, 0, k)
	for _, n := range nodes {
		d := embedding.CosineDistance(query, n.Value)
		for _, id := range h.members[n.Key] {
			out = append(out, Neighbor{ID: id, Distance: d})
		}
	}
	sortNeighbors(out)
	if k < len(out) {
		out = out[:k]
	}
	return out
}

func (h *hnswIndex) Len() int {
	return h.count
}
