package geo

import (
	"math"
	"testing"
)

func TestDistanceKm_ZeroDistance(t *testing.T) {
	d := DistanceKm(-6.7924, 39.2083, -6.7924, 39.2083)
	if d < 0 || d > 1e-9 {
		t.Fatalf("same point expected ~0, got %v", d)
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	pairs := [][4]float64{
		{-6.7924, 39.2083, -6.8160, 39.2803},
		{0, 0, 10, 10},
		{51.5074, -0.1278, 40.7128, -74.0060},
		{-33.8688, 151.2093, 35.6762, 139.6503},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("distance not symmetric: %v vs %v for %v", ab, ba, p)
		}
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// London to Paris, roughly 344 km great-circle.
	d := DistanceKm(51.5074, -0.1278, 48.8566, 2.3522)
	if d < 330 || d > 350 {
		t.Fatalf("London-Paris expected ~344 km, got %v", d)
	}
}

func TestWithinRadiusKm(t *testing.T) {
	// ~111 m apart along the meridian.
	if !WithinRadiusKm(0, 0, 0.001, 0, 0.2) {
		t.Error("expected points to be within 200m radius")
	}
	if WithinRadiusKm(0, 0, 0.01, 0, 0.2) {
		t.Error("expected points to be outside 200m radius")
	}
}

func TestValidateLatLon(t *testing.T) {
	cases := []struct {
		lat, lon float64
		wantErr  bool
	}{
		{0, 0, false},
		{-90, -180, false},
		{90, 180, false},
		{90.1, 0, true},
		{-90.1, 0, true},
		{0, 180.1, true},
		{0, -180.1, true},
	}
	for _, c := range cases {
		err := ValidateLatLon(c.lat, c.lon)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateLatLon(%v, %v) err=%v, wantErr=%v", c.lat, c.lon, err, c.wantErr)
		}
	}
}
