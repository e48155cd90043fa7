package geo

import (
	"math"
	"testing"
)

func TestNewResolver_EmptyPath(t *testing.T) {
	r, err := NewResolver("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != nil {
		t.Error("expected nil resolver for empty path")
	}
}

func TestNewResolver_MissingFile(t *testing.T) {
	_, err := NewResolver("/nonexistent/GeoLite2-City.mmdb")
	if err == nil {
		t.Error("expected error for missing database file")
	}
}

func TestResolver_NilLocate(t *testing.T) {
	var r *Resolver
	_, err := r.Locate("8.8.8.8")
	if err != ErrUnavailable {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestResolver_NilClose(t *testing.T) {
	var r *Resolver
	if err := r.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDistanceKm_SamePoint(t *testing.T) {
	d := DistanceKm(40.7128, -74.0060, 40.7128, -74.0060)
	if d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{"new york to london", 40.7128, -74.0060, 51.5074, -0.1278, 5570, 20},
		{"paris to berlin", 48.8566, 2.3522, 52.5200, 13.4050, 878, 10},
		{"one degree latitude", 0, 0, 1, 0, 111.19, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(d-tt.wantKm) > tt.tolerance {
				t.Errorf("distance = %f, want %f +/- %f", d, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := DistanceKm(48.8566, 2.3522, 52.5200, 13.4050)
	b := DistanceKm(52.5200, 13.4050, 48.8566, 2.3522)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", a, b)
	}
}
