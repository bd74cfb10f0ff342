package recognizer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attend/internal/database"
)

// maxNeighbors is the HNSW M parameter; Ml uses the standard 1/M formula.
const maxNeighbors = 16

// Entry is one known face sample in the index.
type Entry struct {
	Name     string
	Template []float32
}

// Candidate is a search result with its cosine distance to the query.
type Candidate struct {
	Entry
	Distance float64
}

// Index is an in-memory nearest-neighbour index over face templates. The
// graph uses cosine distance, which for normalized templates is 1 minus the
// correlation score. Safe for concurrent use; the web layer searches while
// dataset reloads rebuild.
type Index struct {
	graph   *hnsw.Graph[int64]
	entries map[int64]Entry
	nextID  int64
	mu      sync.RWMutex
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[int64]Entry)}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with the given entries. Entries with an
// empty template are skipped.
func (ix *Index) Build(entries []Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.graph = nil
	ix.entries = make(map[int64]Entry, len(entries))
	ix.nextID = 0

	if len(entries) == 0 {
		return
	}

	g := newGraph()
	for _, e := range entries {
		if len(e.Template) == 0 {
			continue
		}
		ix.nextID++
		g.Add(hnsw.MakeNode(ix.nextID, e.Template))
		ix.entries[ix.nextID] = e
	}
	ix.graph = g
}

// Add inserts a single entry into the index.
func (ix *Index) Add(e Entry) {
	if len(e.Template) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.graph == nil {
		ix.graph = newGraph()
	}
	ix.nextID++
	ix.graph.Add(hnsw.MakeNode(ix.nextID, e.Template))
	ix.entries[ix.nextID] = e
}

// Search returns up to k nearest entries with their exact cosine distance,
// computed from the stored node vectors rather than the graph's traversal
// estimate.
func (ix *Index) Search(template []float32, k int) []Candidate {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil {
		return nil
	}

	neighbors := ix.graph.Search(template, k)
	out := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		entry, ok := ix.entries[n.Key]
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Entry:    entry,
			Distance: database.CosineDistance(template, n.Value),
		})
	}
	return out
}

// Count returns the number of indexed face samples.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// People returns the number of distinct people in the index, compared on
// normalized names.
func (ix *Index) People() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	people := make(map[string]struct{}, len(ix.entries))
	for _, e := range ix.entries {
		people[NormalizePersonName(e.Name)] = struct{}{}
	}
	return len(people)
}

// IsEmpty reports whether the index holds no faces.
func (ix *Index) IsEmpty() bool {
	return ix.Count() == 0
}

// Save persists the graph and its entries to path (entries go to a .names
// sidecar). An empty index removes any stale files instead.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil {
		_ = os.Remove(path)
		_ = os.Remove(path + ".names")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := ix.graph.Export(f); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ix.entries); err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	if err := os.WriteFile(path+".names", buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write entries file: %w", err)
	}
	return nil
}

// Load restores an index saved by Save. A missing graph file leaves the
// index empty so the caller can rebuild from the store; a graph file without
// its sidecar is an error.
func (ix *Index) Load(path string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	data, err := os.ReadFile(path + ".names")
	if err != nil {
		return fmt.Errorf("read entries file: %w", err)
	}

	entries := make(map[int64]Entry)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return fmt.Errorf("decode entries: %w", err)
	}

	ix.graph = saved.Graph
	ix.entries = entries
	ix.nextID = 0
	for id := range entries {
		if id > ix.nextID {
			ix.nextID = id
		}
	}
	return nil
}
