package openpmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend keeps a series in memory, used to build series in tests and by
// tools that synthesize diagnostics
type MemoryBackend struct {
	mu         sync.RWMutex
	components map[int]map[string]*Component
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{components: make(map[int]map[string]*Component)}
}

func (m *MemoryBackend) Set(iteration int, path string, c *Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.components[iteration]; !ok {
		m.components[iteration] = make(map[string]*Component)
	}
	if c.UnitSI == 0 {
		c.UnitSI = 1
	}
	m.components[iteration][strings.Trim(path, "/")] = c
}

// SetData stores a dataset component with unitSI 1
func (m *MemoryBackend) SetData(iteration int, path string, data []float64) {
	m.Set(iteration, path, &Component{Data: data, UnitSI: 1})
}

// SetConstant stores a constant component of n values
func (m *MemoryBackend) SetConstant(iteration int, path string, value float64, n int) {
	m.Set(iteration, path, &Component{Constant: true, Value: value, Shape: []int{n}, UnitSI: 1})
}

func (m *MemoryBackend) Iterations() (its []int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for it := range m.components {
		its = append(its, it)
	}
	sort.Ints(its)
	return
}

func (m *MemoryBackend) List(iteration int, path string) (names []string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	comps, ok := m.components[iteration]
	if !ok {
		return nil, fmt.Errorf("iteration %d not found", iteration)
	}
	path = strings.Trim(path, "/")
	if _, ok = comps[path]; ok {
		return nil, nil
	}
	seen := make(map[string]bool)
	prefix := path + "/"
	for p := range comps {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		child := strings.SplitN(p[len(prefix):], "/", 2)[0]
		if !seen[child] {
			seen[child] = true
			names = append(names, child)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("group %q not found in iteration %d", path, iteration)
	}
	sort.Strings(names)
	return
}

func (m *MemoryBackend) Component(iteration int, path string) (*Component, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.components[iteration][strings.Trim(path, "/")]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("record component %q not found in iteration %d", path, iteration)
}

func (m *MemoryBackend) Close() error {
	return nil
}
