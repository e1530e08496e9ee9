package engine

import (
	"math"
	"testing"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Hanoi office to a point ~100m north: 0.0009 degrees latitude is
	// roughly 100m on the meridian.
	a := Coordinates{Latitude: 21.033618, Longitude: 105.7796304}
	b := Coordinates{Latitude: 21.034518, Longitude: 105.7796304}
	d := HaversineMeters(a, b)
	if d < 95 || d > 105 {
		t.Fatalf("expected ~100m, got %.2f", d)
	}
}

func TestHaversineZeroDistance(t *testing.T) {
	p := Coordinates{Latitude: 10.8380556, Longitude: 106.7351069}
	if d := HaversineMeters(p, p); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestEvaluateGeofenceBoundaryInclusive(t *testing.T) {
	center := Coordinates{Latitude: 16.0293578, Longitude: 108.2086351}
	point := Coordinates{Latitude: 16.0302578, Longitude: 108.2086351}
	exact := HaversineMeters(center, point)

	pos := &Position{Coordinates: point}
	site := Site{ID: 1, Name: "DN", Latitude: center.Latitude, Longitude: center.Longitude, RadiusMeters: exact}

	// exactly radius meters away: within
	got, match := EvaluateGeofence(pos, []Site{site})
	if got != ContainmentWithin {
		t.Fatalf("point at exactly radius should be within, got %v", got)
	}
	if match == nil || !match.Within {
		t.Fatalf("expected a within match, got %+v", match)
	}

	// radius shrunk below the distance: outside
	site.RadiusMeters = exact - 0.001
	got, match = EvaluateGeofence(pos, []Site{site})
	if got != ContainmentOutside {
		t.Fatalf("point beyond radius should be outside, got %v", got)
	}
	if match == nil || match.Within {
		t.Fatalf("expected nearest non-matching site, got %+v", match)
	}
}

func TestEvaluateGeofenceDisjunction(t *testing.T) {
	pos := &Position{Coordinates: Coordinates{Latitude: 21.033618, Longitude: 105.7796304}}
	far := Site{ID: 1, Name: "HCM", Latitude: 10.8380556, Longitude: 106.7351069, RadiusMeters: 100}
	near := Site{ID: 2, Name: "HN", Latitude: 21.033618, Longitude: 105.7796304, RadiusMeters: 50}

	got, match := EvaluateGeofence(pos, []Site{far, near})
	if got != ContainmentWithin {
		t.Fatalf("any matching site should satisfy containment, got %v", got)
	}
	if match.Site.ID != near.ID {
		t.Fatalf("expected match on site %d, got %d", near.ID, match.Site.ID)
	}
}

func TestEvaluateGeofenceUnknown(t *testing.T) {
	sites := []Site{{ID: 1, Latitude: 0, Longitude: 0, RadiusMeters: 100}}

	if got, _ := EvaluateGeofence(nil, sites); got != ContainmentUnknown {
		t.Fatalf("nil position must be unknown, got %v", got)
	}
	pos := &Position{Coordinates: Coordinates{Latitude: 1, Longitude: 1}}
	if got, _ := EvaluateGeofence(pos, nil); got != ContainmentUnknown {
		t.Fatalf("empty site list must be unknown, got %v", got)
	}
}

func TestEvaluateGeofenceNearestReported(t *testing.T) {
	pos := &Position{Coordinates: Coordinates{Latitude: 21.0, Longitude: 105.0}}
	a := Site{ID: 1, Name: "far", Latitude: 10.0, Longitude: 106.0, RadiusMeters: 10}
	b := Site{ID: 2, Name: "closer", Latitude: 21.1, Longitude: 105.0, RadiusMeters: 10}

	got, match := EvaluateGeofence(pos, []Site{a, b})
	if got != ContainmentOutside {
		t.Fatalf("expected outside, got %v", got)
	}
	if match.Site.ID != b.ID {
		t.Fatalf("expected nearest site %d, got %d", b.ID, match.Site.ID)
	}
	if math.IsNaN(match.DistanceMeters) || match.DistanceMeters <= 0 {
		t.Fatalf("bad distance %v", match.DistanceMeters)
	}
}
