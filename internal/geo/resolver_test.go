package geo

import (
	"context"
	"errors"
	"testing"
)

func TestResolveThroughLookup(t *testing.T) {
	calls := 0
	lookup := func(ctx context.Context, name string) (Coordinates, error) {
		calls++
		return Coordinates{Lat: -23.55, Lng: -46.63}, nil
	}
	r := NewResolver(lookup, nil, nil)

	coords, ok := r.Resolve(context.Background(), "Centro")
	if !ok {
		t.Fatal("expected a hit through the lookup")
	}
	if coords.Lat != -23.55 || coords.Lng != -46.63 {
		t.Fatalf("unexpected coordinates: %+v", coords)
	}

	// Second call must come from the cache, case-insensitively.
	if _, ok := r.Resolve(context.Background(), "  CENTRO "); !ok {
		t.Fatal("expected a cache hit")
	}
	if calls != 1 {
		t.Fatalf("lookup called %d times, want 1", calls)
	}
}

func TestResolveLookupFailureIsAMiss(t *testing.T) {
	lookup := func(ctx context.Context, name string) (Coordinates, error) {
		return Coordinates{}, errors.New("provider down")
	}
	r := NewResolver(lookup, nil, nil)
	if _, ok := r.Resolve(context.Background(), "Centro"); ok {
		t.Fatal("lookup failure must resolve to a miss, not an error")
	}
}

func TestResolveBlankName(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	if _, ok := r.Resolve(context.Background(), "   "); ok {
		t.Fatal("blank name must miss")
	}
}

func TestResolveNilLookup(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	if _, ok := r.Resolve(context.Background(), "Centro"); ok {
		t.Fatal("nil lookup must miss")
	}
}

func TestCacheIsWriteOnce(t *testing.T) {
	first := true
	lookup := func(ctx context.Context, name string) (Coordinates, error) {
		if first {
			first = false
			return Coordinates{Lat: 1, Lng: 1}, nil
		}
		return Coordinates{Lat: 2, Lng: 2}, nil
	}
	r := NewResolver(lookup, nil, nil)

	r.Resolve(context.Background(), "centro")
	coords, ok := r.Resolve(context.Background(), "centro")
	if !ok || coords.Lat != 1 {
		t.Fatalf("cached entry changed: %+v", coords)
	}
}

func TestStaticLookup(t *testing.T) {
	lookup := StaticLookup([]string{
		"Centro:-23.55:-46.63",
		"malformed",
		"BadLat:x:1",
	})

	coords, err := lookup(context.Background(), "centro")
	if err != nil {
		t.Fatalf("static lookup failed: %v", err)
	}
	if coords.Lat != -23.55 {
		t.Fatalf("unexpected lat %v", coords.Lat)
	}

	if _, err := lookup(context.Background(), "unknown"); err == nil {
		t.Fatal("unknown name must return an error")
	}
	if _, err := lookup(context.Background(), "badlat"); err == nil {
		t.Fatal("malformed entries must be skipped")
	}
}
