package geo

import "testing"

func TestClampIdempotent(t *testing.T) {
	pts := []Point{
		{Lat: 91, Lng: 181},
		{Lat: -91, Lng: -181},
		{Lat: 45, Lng: 179.999},
		{Lat: 0, Lng: 0},
	}
	for _, p := range pts {
		c := p.Clamp()
		if c.Lat < -90 || c.Lat > 90 {
			t.Fatalf("clamp lat out of range: %+v -> %+v", p, c)
		}
		if c.Lng < -180 || c.Lng >= 180 {
			t.Fatalf("clamp lng out of range: %+v -> %+v", p, c)
		}
		if c2 := c.Clamp(); c2 != c {
			t.Fatalf("clamp not idempotent: %+v -> %+v -> %+v", p, c, c2)
		}
	}
}

func TestRectEnvelopesNonWrapping(t *testing.T) {
	r := Rect{SW: Point{Lat: 0, Lng: -10}, NE: Point{Lat: 10, Lng: 10}}
	envs := r.Envelopes()
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envs))
	}
}

func TestRectEnvelopesWrapping(t *testing.T) {
	r := Rect{SW: Point{Lat: 0, Lng: 170}, NE: Point{Lat: 10, Lng: -170}}
	envs := r.Envelopes()
	if len(envs) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(envs))
	}
	if envs[0].NE.Lng != 180 || envs[1].SW.Lng != -180 {
		t.Fatalf("envelopes don't cover antimeridian: %+v", envs)
	}
}

func TestRectWrapQueryScenario(t *testing.T) {
	// A viewport straddling the antimeridian.
	r := Rect{SW: Point{Lat: 0, Lng: 170}, NE: Point{Lat: 10, Lng: -170}}
	inside := []Point{{Lat: 5, Lng: 175}, {Lat: 5, Lng: -175}}
	outside := Point{Lat: 5, Lng: 0}

	for _, p := range inside {
		if !r.Contains(p) {
			t.Fatalf("expected %+v inside %+v", p, r)
		}
	}
	if r.Contains(outside) {
		t.Fatalf("expected %+v outside %+v", outside, r)
	}
}

func TestRingContainsDateline(t *testing.T) {
	ring := Ring{
		{Lat: 0, Lng: 170},
		{Lat: 0, Lng: -170},
		{Lat: 10, Lng: -170},
		{Lat: 10, Lng: 170},
	}
	if !ring.Contains(Point{Lat: 5, Lng: 179}) {
		t.Fatalf("expected point inside dateline-spanning ring")
	}
	if ring.Contains(Point{Lat: 5, Lng: 0}) {
		t.Fatalf("expected point outside dateline-spanning ring")
	}
}
