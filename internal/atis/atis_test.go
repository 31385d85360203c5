package atis

import (
	"sort"
	"testing"
)

func TestNormalizeIdent(t *testing.T) {
	cases := map[string]string{
		"35L":       "35L",
		"22":        "22",
		"01 CENTER": "01C",
		"26 LEFT":   "26L",
		"27 RIGHT":  "27R",
	}
	for in, want := range cases {
		if got := NormalizeIdent(in); got != want {
			t.Errorf("NormalizeIdent(%q) = %q, want %q", in, got, want)
		}
	}
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func assertEqual(t *testing.T, got, want []string) {
	t.Helper()
	got, want = sorted(got), sorted(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		atis       string
		arrivals   []string
		departures []string
	}{
		{
			atis:       "LANDING RUNWAY 26 LEFT AND 27 RIGHT, TAKEOFF RUNWAY 26 RIGHT AND 27 LEFT",
			arrivals:   []string{"26L", "27R"},
			departures: []string{"26R", "27L"},
		},
		{
			atis:       "HANNOVER INFORMATION A MET REPORT TIME 1720 EXPECT ILS Z APPROACH RUNWAY 27C 27L OR 27R RUNWAYS IN USE 27C 27L AND 27R TRL 70",
			arrivals:   []string{"27C", "27L", "27R"},
			departures: []string{"27C", "27L", "27R"},
		},
		{
			atis:       "EXPECT ILS APPROACH RUNWAY 23 RUNWAY 23 IN USE FOR LANDING AND TAKE OFF TRL 70",
			arrivals:   []string{"23"},
			departures: []string{"23"},
		},
		{
			atis:       "ARRIVAL RUNWAY 22L AFTER LANDING VACATE RUNWAY DEPARTURE RUNWAY 22R TRANSITION LEVEL 75",
			arrivals:   []string{"22L"},
			departures: []string{"22R"},
		},
	}

	for _, tc := range cases {
		normalized := NormalizeText(tc.atis, true)
		assertEqual(t, DetectArrivals(normalized), tc.arrivals)
		assertEqual(t, DetectDepartures(normalized), tc.departures)
	}
}

func TestNormalizeTextCollapsesVoiceCallouts(t *testing.T) {
	got := NormalizeText("transition level 7 0", true)
	if got != "TRANSITION LEVEL 70" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeTextStripsSpecials(t *testing.T) {
	got := NormalizeText("RUNWAY 09, (IN USE)!", false)
	if got != "RUNWAY 09 IN USE" {
		t.Fatalf("got %q", got)
	}
}
