// Package geo caches neighborhood coordinates for route clustering.
// Resolution failures never block ranking or display.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordinates is a resolved neighborhood location.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Lookup resolves a neighborhood name to coordinates. Injected so the
// geocoding provider stays outside this core.
type Lookup func(ctx context.Context, name string) (Coordinates, error)

// Resolver lazily populates a write-once cache through the injected
// lookup. Entries are immutable once set: neighborhoods don't move.
// A Redis tier, when present, shares entries across replicas.
type Resolver struct {
	lookup Lookup
	redis  *redis.Client
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]Coordinates
}

// NewResolver constructs a resolver. redisClient may be nil.
func NewResolver(lookup Lookup, redisClient *redis.Client, logger *zap.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		redis:  redisClient,
		logger: logger,
		cache:  make(map[string]Coordinates),
	}
}

const redisKeyPrefix = "geo:neighborhood:"

// StaticLookup builds a Lookup from configuration entries of the form
// name:lat:lng. Unknown names miss; malformed entries are skipped.
func StaticLookup(entries []string) Lookup {
	table := make(map[string]Coordinates, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if errLat != nil || errLng != nil {
			continue
		}
		table[strings.ToLower(strings.TrimSpace(parts[0]))] = Coordinates{Lat: lat, Lng: lng}
	}
	return func(ctx context.Context, name string) (Coordinates, error) {
		if coords, ok := table[strings.ToLower(strings.TrimSpace(name))]; ok {
			return coords, nil
		}
		return Coordinates{}, errors.New("neighborhood not in static table")
	}
}

// Resolve returns coordinates for a neighborhood name. ok is false when
// the name is blank or every tier missed; callers rank and display the
// ticket regardless.
func (r *Resolver) Resolve(ctx context.Context, name string) (Coordinates, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Coordinates{}, false
	}

	r.mu.RLock()
	coords, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return coords, true
	}

	if coords, ok := r.fromRedis(ctx, key); ok {
		r.store(key, coords)
		return coords, true
	}

	if r.lookup == nil {
		return Coordinates{}, false
	}
	coords, err := r.lookup(ctx, name)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("geocode lookup failed", zap.String("neighborhood", name), zap.Error(err))
		}
		return Coordinates{}, false
	}
	r.store(key, coords)
	r.toRedis(ctx, key, coords)
	return coords, true
}

func (r *Resolver) store(key string, coords Coordinates) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// First write wins; entries are immutable.
	if _, exists := r.cache[key]; !exists {
		r.cache[key] = coords
	}
}

func (r *Resolver) fromRedis(ctx context.Context, key string) (Coordinates, bool) {
	if r.redis == nil {
		return Coordinates{}, false
	}
	raw, err := r.redis.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return Coordinates{}, false
	}
	var coords Coordinates
	if err := json.Unmarshal([]byte(raw), &coords); err != nil {
		return Coordinates{}, false
	}
	return coords, true
}

func (r *Resolver) toRedis(ctx context.Context, key string, coords Coordinates) {
	if r.redis == nil {
		return
	}
	raw, err := json.Marshal(coords)
	if err != nil {
		return
	}
	// SetNX keeps the first written value authoritative.
	if err := r.redis.SetNX(ctx, redisKeyPrefix+key, raw, 0).Err(); err != nil && r.logger != nil {
		r.logger.Warn("geo cache write failed", zap.String("neighborhood", key), zap.Error(err))
	}
}
