package predict

import (
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/KI7MT/ki7mt-hfprop/internal/ccir"
	"github.com/KI7MT/ki7mt-hfprop/internal/geomag"
	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/layers"
	"github.com/KI7MT/ki7mt-hfprop/internal/profile"
)

// DefaultCacheSize bounds the number of resolved control points kept.
const DefaultCacheSize = 4096

// cacheScope identifies everything besides the control point that shapes a
// resolved profile. Engines sharing a cache only share entries when their
// scopes are equal.
type cacheScope struct {
	maps   *ccir.Map
	layers layers.Config
	field  string // Model type and parameters
}

func newCacheScope(maps *ccir.Map, cfg layers.Config, field geomag.Model) cacheScope {
	return cacheScope{maps: maps, layers: cfg, field: fmt.Sprintf("%T%+v", field, field)}
}

// profileKey identifies a resolved control point. Coordinates are keyed at
// micro-degree resolution so that identical inputs always share an entry.
type profileKey struct {
	scope    cacheScope
	lat, lon int64
	unix     int64 // nanoseconds
	ssn      int64 // tenths
}

func newProfileKey(scope cacheScope, pt iono.GeographicPoint, t time.Time, ssn float64) profileKey {
	return profileKey{
		scope: scope,
		lat:   int64(math.Round(pt.LatDeg() * 1e6)),
		lon:   int64(math.Round(pt.LonDeg() * 1e6)),
		unix:  t.UnixNano(),
		ssn:   int64(math.Round(ssn * 10)),
	}
}

type profileEntry struct {
	field   geomag.Field
	layers  iono.LayerSet
	profile *profile.Profile
}

func (pe profileEntry) apply(cp iono.ControlPoint) iono.ControlPoint {
	return pe.field.Apply(cp).WithLayers(pe.layers)
}

// ProfileCache holds resolved layer sets and profiles keyed by point, time
// and solar activity, scoped to the coefficient map, resolver settings and
// field model of the engine that resolved them. Profiles are immutable, so entries are shared between
// goroutines without copying. A nil cache is valid and never hits.
type ProfileCache struct {
	lru *lru.Cache[profileKey, profileEntry]
}

// NewProfileCache creates a cache holding up to size entries.
func NewProfileCache(size int) (*ProfileCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[profileKey, profileEntry](size)
	if err != nil {
		return nil, err
	}
	return &ProfileCache{lru: c}, nil
}

// Len returns the number of cached entries.
func (c *ProfileCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every entry.
func (c *ProfileCache) Purge() {
	if c != nil {
		c.lru.Purge()
	}
}

func (c *ProfileCache) get(k profileKey) (profileEntry, bool) {
	if c == nil {
		return profileEntry{}, false
	}
	return c.lru.Get(k)
}

func (c *ProfileCache) add(k profileKey, e profileEntry) {
	if c != nil {
		c.lru.Add(k, e)
	}
}
