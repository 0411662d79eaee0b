package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory keeps vectors in process. Collections do not survive a restart.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	dim    int
	points map[string]Point
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

func (m *Memory) EnsureCollection(_ context.Context, name string, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		if c.dim != dim {
			return fmt.Errorf("collection %s has dimension %d, want %d", name, c.dim, dim)
		}
		return nil
	}
	m.collections[name] = &memCollection{dim: dim, points: make(map[string]Point)}
	return nil
}

func (m *Memory) collection(name string) (*memCollection, error) {
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	return c, nil
}

func (m *Memory) Upsert(_ context.Context, name string, p Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(name)
	if err != nil {
		return err
	}
	if len(p.Vector) != c.dim {
		return fmt.Errorf("vector has dimension %d, want %d", len(p.Vector), c.dim)
	}
	c.points[p.ID] = p
	return nil
}

func (m *Memory) Search(ctx context.Context, name string, vector []float32, siteID int64, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.collection(name)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(c.points))
	for _, p := range c.points {
		if siteID > 0 && p.Payload.SiteID != siteID {
			continue
		}
		hits = append(hits, Hit{Payload: p.Payload, Score: cosine(vector, p.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].PageID < hits[j].PageID
		}
		return hits[i].Score > hits[j].Score
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) DeleteByPage(_ context.Context, name string, pageID int64) error {
	return m.deleteWhere(name, func(p Payload) bool { return p.PageID == pageID })
}

func (m *Memory) DeleteBySite(_ context.Context, name string, siteID int64) error {
	return m.deleteWhere(name, func(p Payload) bool { return p.SiteID == siteID })
}

func (m *Memory) deleteWhere(name string, match func(Payload) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.collection(name)
	if err != nil {
		return err
	}
	for id, p := range c.points {
		if match(p.Payload) {
			delete(c.points, id)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
