// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package geo provides great-circle distance and bounding box helpers.
package geo

import (
	"math"

	"github.com/tomtom215/tablemates/internal/recommend"
)

const (
	// EarthRadiusKm is the mean Earth radius.
	EarthRadiusKm = 6371.0

	// KmPerDegree is the approximate length of one degree of latitude.
	KmPerDegree = 111.0

	// minCosLatitude guards longitude widening near the poles.
	minCosLatitude = 0.0001
)

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b recommend.Location) float64 {
	lat1Rad := a.Latitude * math.Pi / 180
	lat2Rad := b.Latitude * math.Pi / 180
	deltaLat := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	// Rounding can push h just past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// BoundingBox is an axis-aligned lat/lon rectangle.
type BoundingBox = recommend.BoundingBox

// BoundingBoxAround returns a box enclosing every point within radiusKm of
// center. Near the poles, or when the radius spans every meridian, the
// longitude range widens to the whole globe. A range reaching past ±180
// wraps into a box with MinLon > MaxLon.
func BoundingBoxAround(center recommend.Location, radiusKm float64) BoundingBox {
	latDelta := radiusKm / KmPerDegree
	box := BoundingBox{
		MinLat: center.Latitude - latDelta,
		MaxLat: center.Latitude + latDelta,
		MinLon: -180,
		MaxLon: 180,
	}

	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	if math.Abs(cosLat) <= minCosLatitude {
		return box
	}
	lonDelta := radiusKm / (KmPerDegree * math.Abs(cosLat))
	if lonDelta >= 180 {
		return box
	}

	box.MinLon = center.Longitude - lonDelta
	box.MaxLon = center.Longitude + lonDelta
	switch {
	case box.MinLon < -180:
		box.MinLon += 360
	case box.MaxLon > 180:
		box.MaxLon -= 360
	}
	return box
}

// Centroid returns the arithmetic mean of the given locations and false when
// there are none.
func Centroid(locs []recommend.Location) (recommend.Location, bool) {
	if len(locs) == 0 {
		return recommend.Location{}, false
	}
	var lat, lon float64
	for _, l := range locs {
		lat += l.Latitude
		lon += l.Longitude
	}
	n := float64(len(locs))
	return recommend.Location{Latitude: lat / n, Longitude: lon / n}, true
}
