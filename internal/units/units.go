// Package units provides shared geographic conversion constants and
// helpers for distances and cell sizes on the WGS84 grid.
package units

import "math"

// KmPerDegreeLat is the approximate north-south span of one degree of
// latitude. Constant to within ~0.5% everywhere on the ellipsoid.
const KmPerDegreeLat = 110.574

// earthRadiusKm is the mean Earth radius used for haversine distances.
const earthRadiusKm = 6371.0

// KmPerDegreeLon returns the east-west span of one degree of longitude
// at the given latitude. Shrinks toward the poles.
func KmPerDegreeLon(latDeg float64) float64 {
	return 111.320 * math.Cos(latDeg*math.Pi/180)
}

// HaversineKm returns the great-circle distance in kilometres between
// two lon/lat points.
func HaversineKm(lon1, lat1, lon2, lat2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// CellDiagonalKm returns the corner-to-corner span in kilometres of one
// grid cell of the given angular size centred at the given latitude.
func CellDiagonalKm(cellWidthDeg, cellHeightDeg, latDeg float64) float64 {
	w := cellWidthDeg * KmPerDegreeLon(latDeg)
	h := cellHeightDeg * KmPerDegreeLat
	return math.Sqrt(w*w + h*h)
}
