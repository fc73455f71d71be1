package temporal

import (
	"errors"
	"testing"
	"time"
)

// colombo mirrors Asia/Colombo (UTC+05:30, no DST) without relying on the
// host's tz database.
var colombo = time.FixedZone("Asia/Colombo", 5*3600+30*60)

// friday is 2025-11-14 10:00 in Colombo.
var friday = time.Date(2025, 11, 14, 10, 0, 0, 0, colombo)

func TestResolvePhrases(t *testing.T) {
	tests := []struct {
		phrase string
		want   string
	}{
		{"2025-12-01", "2025-12-01"},
		{"today", "2025-11-14"},
		{"Tomorrow", "2025-11-15"},
		{"yesterday", "2025-11-13"},
		{"day after tomorrow", "2025-11-16"},
		{"this afternoon", "2025-11-14"},
		{"this evening", "2025-11-14"},
		{"tonight", "2025-11-14"},
		{"friday", "2025-11-21"},
		{"Monday", "2025-11-17"},
		{"next Friday", "2025-11-21"},
		{"next monday", "2025-11-17"},
		{"this friday", "2025-11-14"},
		{"last friday", "2025-11-07"},
		{"in 3 days", "2025-11-17"},
		{"in a week", "2025-11-21"},
		{"in one day", "2025-11-15"},
		{"2 weeks from now", "2025-11-28"},
		{"in 1 month", "2025-12-14"},
		{"3 days ago", "2025-11-11"},
		{"November 29", "2025-11-29"},
		{"Nov 14", "2025-11-14"},
		{"Nov 1", "2026-11-01"},
		{"29th November", "2025-11-29"},
		{"the 5th of December", "2025-12-05"},
		{"Dec 5th, 2026", "2026-12-05"},
		{"the 20th", "2025-11-20"},
		{"the 10th", "2025-12-10"},
		{"tomorrow at 3pm", "2025-11-15"},
		{"friday evening", "2025-11-21"},
		{"by tomorrow", "2025-11-15"},
		{"due on Nov 20", "2025-11-20"},
		{"next November 29", "2025-11-29"},
		{"next week", "2025-11-21"},
		{"end of week", "2025-11-16"},
		{"end of the month", "2025-11-30"},
		{"14/11/2025", "2025-11-14"},
		{"2025/11/20", "2025-11-20"},
		{"Tomorrow!", "2025-11-15"},
		{"February 29", "2028-02-29"},
		{"Feb 29, 2028", "2028-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, err := Resolve(tt.phrase, friday, colombo)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.phrase, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.phrase, got, tt.want)
			}
		})
	}
}

func TestResolveFailures(t *testing.T) {
	for _, phrase := range []string{"", "   ", "February 30", "Feb 30, 2026", "31/04/2026", "someday", "asap", "next blursday", "the 45th"} {
		t.Run(phrase, func(t *testing.T) {
			got, err := Resolve(phrase, friday, colombo)
			if !errors.Is(err, ErrUnresolvable) {
				t.Fatalf("Resolve(%q) = %q, %v; want ErrUnresolvable", phrase, got, err)
			}
		})
	}
}

func TestResolveCompoundPhrases(t *testing.T) {
	// Phrases outside the fixed vocabulary still land on a day within the
	// week they name.
	for _, phrase := range []string{"next week friday"} {
		t.Run(phrase, func(t *testing.T) {
			got, err := Resolve(phrase, friday, colombo)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", phrase, err)
			}
			if got <= "2025-11-14" || got > "2025-11-23" {
				t.Errorf("Resolve(%q) = %s, want a date after 2025-11-14 up to 2025-11-23", phrase, got)
			}
		})
	}
}

func TestResolveUsesTimeZone(t *testing.T) {
	// 20:00 UTC on the 14th is already 01:30 on the 15th in Colombo.
	ref := time.Date(2025, 11, 14, 20, 0, 0, 0, time.UTC)
	got, err := Resolve("today", ref, colombo)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2025-11-15" {
		t.Errorf("expected 2025-11-15, got %s", got)
	}

	got, err = Resolve("today", ref, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2025-11-14" {
		t.Errorf("expected 2025-11-14 in UTC, got %s", got)
	}
}

func TestResolveISORoundTrip(t *testing.T) {
	for _, d := range []string{"2024-02-29", "2025-01-01", "1999-12-31", "2030-06-15"} {
		got, err := Resolve(d, friday, colombo)
		if err != nil || got != d {
			t.Errorf("Resolve(%q) = %q, %v; want unchanged", d, got, err)
		}
	}
}

func TestBareWeekdayIsStrictlyFutureWithinAWeek(t *testing.T) {
	names := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	for offset := range 14 {
		ref := friday.AddDate(0, 0, offset)
		today := midnight(ref)
		for _, name := range names {
			got, err := Resolve(name, ref, colombo)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", name, err)
			}
			d, _ := time.ParseInLocation(ISOLayout, got, colombo)
			days := int(d.Sub(today).Hours() / 24)
			if days < 1 || days > 7 {
				t.Errorf("ref %s: %q resolved %d days ahead (%s)", today.Format(ISOLayout), name, days, got)
			}
		}
	}
}

func TestAddMonthsClamps(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	if got := addMonths(jan31, 1).Format(ISOLayout); got != "2025-02-28" {
		t.Errorf("expected 2025-02-28, got %s", got)
	}
	if got := addMonths(jan31, 13).Format(ISOLayout); got != "2026-02-28" {
		t.Errorf("expected 2026-02-28, got %s", got)
	}
}

func TestAnchors(t *testing.T) {
	a := AnchorsAt(friday, colombo)
	want := Anchors{
		Today:      "2025-11-14",
		Tomorrow:   "2025-11-15",
		Yesterday:  "2025-11-13",
		WeekStart:  "2025-11-10",
		WeekEnd:    "2025-11-16",
		MonthStart: "2025-11-01",
		MonthEnd:   "2025-11-30",
		Weekday:    "Friday",
	}
	if a != want {
		t.Errorf("AnchorsAt = %+v, want %+v", a, want)
	}
}

func TestNewResolverRejectsUnknownZone(t *testing.T) {
	if _, err := NewResolver("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestIsISODate(t *testing.T) {
	if !IsISODate("2025-11-20") {
		t.Error("expected valid")
	}
	for _, s := range []string{"2025-11-2", "2025-13-01", "2025-02-30", "next friday", ""} {
		if IsISODate(s) {
			t.Errorf("IsISODate(%q) = true", s)
		}
	}
}
