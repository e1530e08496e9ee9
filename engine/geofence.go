package engine

import "math"

const earthRadiusMeters = 6371000.0

// Coordinates is a WGS84 latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Site is a circular geofence an attendance location is validated against.
type Site struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Containment is the tri-state result of a geofence evaluation. Unknown
// means the check could not be performed and must not be treated as either
// pass or fail by gating logic.
type Containment int

const (
	ContainmentUnknown Containment = iota
	ContainmentOutside
	ContainmentWithin
)

func (c Containment) String() string {
	switch c {
	case ContainmentWithin:
		return "within"
	case ContainmentOutside:
		return "outside"
	default:
		return "unknown"
	}
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// HaversineMeters returns the great-circle distance between two points in
// meters.
func HaversineMeters(a, b Coordinates) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	deltaLat := toRadians(b.Latitude - a.Latitude)
	deltaLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// SiteMatch reports the nearest site evaluated for a position, for display
// and audit purposes.
type SiteMatch struct {
	Site           Site    `json:"site"`
	DistanceMeters float64 `json:"distance_meters"`
	Within         bool    `json:"within"`
}

// EvaluateGeofence decides whether a position falls inside any of the given
// sites. The radius compare is inclusive. A nil position or an empty site
// list yields ContainmentUnknown.
func EvaluateGeofence(pos *Position, sites []Site) (Containment, *SiteMatch) {
	if pos == nil || len(sites) == 0 {
		return ContainmentUnknown, nil
	}

	var nearest *SiteMatch
	for _, site := range sites {
		d := HaversineMeters(pos.Coordinates, Coordinates{Latitude: site.Latitude, Longitude: site.Longitude})
		match := &SiteMatch{Site: site, DistanceMeters: d, Within: d <= site.RadiusMeters}
		if match.Within {
			return ContainmentWithin, match
		}
		if nearest == nil || d < nearest.DistanceMeters {
			nearest = match
		}
	}
	return ContainmentOutside, nearest
}
