package storage

import (
	"sort"
	"strings"
	"sync"
)

// Memory is a map-backed Backend for tests and throwaway wikis.
type Memory struct {
	mu   sync.RWMutex
	docs map[Location][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[Location][]byte)}
}

func (m *Memory) Exists(key string) bool {
	loc, err := Resolve(key)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[loc]
	return ok
}

func (m *Memory) Read(key string) ([]byte, error) {
	loc, err := Resolve(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[loc]
	if !ok {
		return nil, notFound(key)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(key string, data []byte) error {
	loc, err := Resolve(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[loc] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Rename(src, dst string) error {
	return m.move(src, dst, true)
}

func (m *Memory) Copy(src, dst string) error {
	return m.move(src, dst, false)
}

func (m *Memory) move(src, dst string, removeSrc bool) error {
	sl, err := Resolve(src)
	if err != nil {
		return err
	}
	dl, err := Resolve(dst)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[sl]
	if !ok {
		return notFound(src)
	}
	m.docs[dl] = append([]byte(nil), data...)
	if removeSrc && sl != dl {
		delete(m.docs, sl)
	}
	return nil
}

func (m *Memory) Remove(key string) error {
	loc, err := Resolve(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[loc]; !ok {
		return notFound(key)
	}
	delete(m.docs, loc)
	return nil
}

// List returns the top-level keys of the pages root, sorted.
func (m *Memory) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.docs))
	for loc := range m.docs {
		if loc.Root != RootPages || strings.Contains(loc.Key, "/") {
			continue
		}
		keys = append(keys, loc.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error {
	return nil
}

var _ Backend = (*Memory)(nil)
