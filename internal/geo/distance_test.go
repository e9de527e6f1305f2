package geo

import "testing"

func TestDistanceKmIdentical(t *testing.T) {
	if d := DistanceKm(50.45, 30.52, 50.45, 30.52); d != 0 {
		t.Fatalf("identical points: got %v, want 0", d)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	cases := [][4]float64{
		{1.1, 6.8, 9.1, 56.8},
		{50.45, 30.52, 49.84, 24.03},
		{-33.86, 151.21, 51.50, -0.12},
	}
	for _, c := range cases {
		ab := DistanceKm(c[0], c[1], c[2], c[3])
		ba := DistanceKm(c[2], c[3], c[0], c[1])
		if ab != ba {
			t.Errorf("distance(%v,%v)->(%v,%v): %v != %v", c[0], c[1], c[2], c[3], ab, ba)
		}
	}
}

func TestDistanceKmKnownValues(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"one degree of longitude on the equator", 0, 0, 0, 1, 111.19},
		{"antipodal", 0, 0, 0, 180, 20015.09},
		{"pole to pole", 90, 0, -90, 0, 20015.09},
	}
	for _, tt := range tests {
		if got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
