package geo

import (
	"math"
	"testing"
)

func TestBucketKey(t *testing.T) {
	got := BucketKey(55.75321, 37.62199)
	want := "lat:55.75|lng:37.62"
	if got != want {
		t.Fatalf("BucketKey = %q, want %q", got, want)
	}
}

func TestBucketKeyNegativeCoordinates(t *testing.T) {
	got := BucketKey(-33.8688, -151.2093)
	want := "lat:-33.87|lng:-151.21"
	if got != want {
		t.Fatalf("BucketKey = %q, want %q", got, want)
	}
}

func TestHaversineZero(t *testing.T) {
	if d := HaversineKm(51.5, -0.12, 51.5, -0.12); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// London -> Paris, roughly 344 km
	d := HaversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	if math.Abs(d-344) > 5 {
		t.Fatalf("London-Paris = %v km, want ~344", d)
	}
}
