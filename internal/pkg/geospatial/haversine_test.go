package geospatial

import (
	"math"
	"testing"
)

var samplePoints = [][2]float64{
	{-27.2092052, -49.6401091},
	{-27.0610928, -49.5229501},
	{43.2630, -2.9350},
	{0, 0},
	{89.9, 179.9},
	{-89.9, -179.9},
	{51.5074, -0.1278},
	{35.6762, 139.6503},
}

func TestHaversine_Symmetric(t *testing.T) {
	for _, a := range samplePoints {
		for _, b := range samplePoints {
			ab := Haversine(a[0], a[1], b[0], b[1])
			ba := Haversine(b[0], b[1], a[0], a[1])
			if math.Abs(ab-ba) > 1e-6 {
				t.Errorf("distance(%v,%v)=%f != distance(%v,%v)=%f", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestHaversine_ZeroForIdenticalPoints(t *testing.T) {
	for _, p := range samplePoints {
		if d := Haversine(p[0], p[1], p[0], p[1]); math.Abs(d) > 1e-6 {
			t.Errorf("distance(%v,%v) = %f, want 0", p, p, d)
		}
	}
}

func TestHaversine_KnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, tolerance        float64
	}{
		{"one degree of latitude", 0, 0, 1, 0, EarthRadiusMeters * math.Pi / 180, 1e-6},
		{"quarter meridian", 0, 0, 90, 0, EarthRadiusMeters * math.Pi / 2, 1e-3},
		{"antipodes", 0, 0, 0, 180, EarthRadiusMeters * math.Pi, 1e-3},
		{"london to paris", 51.5074, -0.1278, 48.8566, 2.3522, 343_500, 1_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("got %f, want %f ± %f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestHaversine_MonotonicInSeparation(t *testing.T) {
	prev := 0.0
	for step := 1; step <= 160; step++ {
		d := Haversine(10, 20, 10+float64(step)*0.5, 20)
		if d <= prev {
			t.Fatalf("distance did not grow at step %d: %f <= %f", step, d, prev)
		}
		prev = d
	}
}

func TestHaversine_AntipodalNeverNaN(t *testing.T) {
	halfCircumference := EarthRadiusMeters * math.Pi

	for lat := -89.0; lat <= 89.0; lat += 0.01 {
		for _, lon := range []float64{-180, -90, 0, 45.5, 180} {
			lon2 := lon + 180
			if lon2 > 180 {
				lon2 -= 360
			}
			d := Haversine(lat, lon, -lat, lon2)
			if math.IsNaN(d) {
				t.Fatalf("distance(%v,%v -> %v,%v) is NaN", lat, lon, -lat, lon2)
			}
			if math.Abs(d-halfCircumference) > 1 {
				t.Fatalf("distance(%v,%v -> %v,%v) = %f, want %f", lat, lon, -lat, lon2, d, halfCircumference)
			}
		}
	}

	if d := Haversine(-58.52, 0, 58.52, -180); math.IsNaN(d) || d < halfCircumference-1 {
		t.Errorf("got %f, want about %f", d, halfCircumference)
	}
}

func TestBoundingBox_ContainsCircle(t *testing.T) {
	const radius = 10_000.0
	centres := [][2]float64{{-27.2092052, -49.6401091}, {60, 10}, {0, 179.95}, {89.95, 0}}

	for _, c := range centres {
		minLat, minLon, maxLat, maxLon := BoundingBox(c[0], c[1], radius)

		// walk the circle boundary and check every point sits inside the box
		for deg := 0; deg < 360; deg += 5 {
			lat, lon := destination(c[0], c[1], float64(deg), radius*0.999999)
			if lat < minLat || lat > maxLat {
				t.Errorf("centre %v bearing %d: lat %f outside [%f,%f]", c, deg, lat, minLat, maxLat)
			}
			if lon < minLon || lon > maxLon {
				t.Errorf("centre %v bearing %d: lon %f outside [%f,%f]", c, deg, lon, minLon, maxLon)
			}
		}
	}
}

func TestBoundingBox_WrapsToFullLongitude(t *testing.T) {
	_, minLon, _, maxLon := BoundingBox(0, 179.99, 10_000)
	if minLon != -180-boxPadDegrees || maxLon != 180+boxPadDegrees {
		t.Errorf("expected full longitude range near antimeridian, got [%f,%f]", minLon, maxLon)
	}

	_, minLon, _, maxLon = BoundingBox(89.99, 0, 10_000)
	if minLon != -180 || maxLon != 180 {
		t.Errorf("expected full longitude range near pole, got [%f,%f]", minLon, maxLon)
	}
}

// destination returns the point reached from (lat, lon) along bearing after
// travelling dist meters on the sphere.
func destination(lat, lon, bearingDeg, dist float64) (float64, float64) {
	ang := dist / EarthRadiusMeters
	br := toRad(bearingDeg)
	lat1 := toRad(lat)
	lon1 := toRad(lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(br))
	lon2 := lon1 + math.Atan2(math.Sin(br)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	lonDeg := toDeg(lon2)
	if lonDeg > 180 {
		lonDeg -= 360
	} else if lonDeg < -180 {
		lonDeg += 360
	}
	return toDeg(lat2), lonDeg
}
