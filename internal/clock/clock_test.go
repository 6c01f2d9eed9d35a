package clock

import (
	"testing"
	"time"
)

func TestParseHHMM(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"23:59", 1439, false},
		{"9:5", 545, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
		{"-1:00", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseHHMM(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHHMM(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseHHMM(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatHHMM(t *testing.T) {
	if got := FormatHHMM(540); got != "09:00" {
		t.Errorf("FormatHHMM(540) = %q, want 09:00", got)
	}
	if got := FormatHHMM(1439); got != "23:59" {
		t.Errorf("FormatHHMM(1439) = %q, want 23:59", got)
	}
}

func TestDayBoundaries(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}

	now := time.Date(2025, 6, 15, 14, 30, 0, 0, loc)
	c := NewFixed(now)

	if got := c.Today(); !got.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, loc)) {
		t.Errorf("Today() = %v", got)
	}
	if got := c.DayEnd(now); !got.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, loc)) {
		t.Errorf("DayEnd() = %v", got)
	}
	if got := c.MinuteOfDay(now); got != 14*60+30 {
		t.Errorf("MinuteOfDay() = %d, want %d", got, 14*60+30)
	}
	if got := c.At(now, 600); !got.Equal(time.Date(2025, 6, 15, 10, 0, 0, 0, loc)) {
		t.Errorf("At(600) = %v", got)
	}
	if !c.SameDay(now, c.Today()) {
		t.Error("SameDay(now, today) = false")
	}
	if c.SameDay(now, now.AddDate(0, 0, 1)) {
		t.Error("SameDay(now, tomorrow) = true")
	}
	if got := c.DayString(now); got != "2025-06-15" {
		t.Errorf("DayString() = %q", got)
	}

	day, err := c.ParseDay("2025-06-15")
	if err != nil {
		t.Fatalf("ParseDay() error = %v", err)
	}
	if !day.Equal(c.Today()) {
		t.Errorf("ParseDay() = %v, want %v", day, c.Today())
	}
}

func TestNewInvalidTimezone(t *testing.T) {
	if _, err := New("Mars/Olympus_Mons"); err == nil {
		t.Error("New() with bogus timezone: expected error")
	}
}
