package ccir

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// BuiltinSource names the built-in reference map in Store.Load.
const BuiltinSource = "builtin:reference"

// Store loads maps at most once per source and shares the result.
// Concurrent first requests for the same source wait on a single load.
type Store struct {
	// Loader reads a source. Defaults to LoadFile.
	Loader func(source string) (*Map, error)

	mu    sync.RWMutex
	maps  map[string]*Map
	group singleflight.Group
	loads atomic.Int64
}

// NewStore creates an empty store backed by LoadFile.
func NewStore() *Store {
	return &Store{Loader: LoadFile}
}

// Load returns the map for source, loading it on first use. An empty source
// or BuiltinSource yields the reference map.
func (s *Store) Load(ctx context.Context, source string) (*Map, error) {
	if source == "" {
		source = BuiltinSource
	}
	if m := s.cached(source); m != nil {
		return m, nil
	}

	ch := s.group.DoChan(source, func() (any, error) {
		if m := s.cached(source); m != nil {
			return m, nil
		}
		m, err := s.load(source)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.maps == nil {
			s.maps = make(map[string]*Map)
		}
		s.maps[source] = m
		s.mu.Unlock()
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Map), nil
	}
}

// Loads reports how many source loads have run.
func (s *Store) Loads() int64 { return s.loads.Load() }

func (s *Store) cached(source string) *Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maps[source]
}

func (s *Store) load(source string) (*Map, error) {
	s.loads.Add(1)
	if source == BuiltinSource {
		return ReferenceMap(), nil
	}
	loader := s.Loader
	if loader == nil {
		loader = LoadFile
	}
	return loader(source)
}
