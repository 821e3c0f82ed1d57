package notify

import (
	"errors"
	"testing"

	"github.com/rcliao/daypulse/internal/model"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"07:30", 450, false},
		{" 23:59 ", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"1230", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
		{"7:5", 0, true},
		{"7:05", 0, true},
		{"07:5", 0, true},
		{"+7:05", 0, true},
		{"-1:00", 0, true},
		{"07:30:00", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseClock(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestInQuietHours(t *testing.T) {
	overnight := model.Preferences{QuietHoursStart: "22:00", QuietHoursEnd: "07:00"}
	daytime := model.Preferences{QuietHoursStart: "09:00", QuietHoursEnd: "17:00"}

	tests := []struct {
		name  string
		prefs model.Preferences
		at    string
		quiet bool
	}{
		{"overnight late evening", overnight, "23:30", true},
		{"overnight early morning", overnight, "06:00", true},
		{"overnight start inclusive", overnight, "22:00", true},
		{"overnight end exclusive", overnight, "07:00", false},
		{"overnight noon", overnight, "12:00", false},
		{"daytime inside", daytime, "12:00", true},
		{"daytime start inclusive", daytime, "09:00", true},
		{"daytime end exclusive", daytime, "17:00", false},
		{"daytime before", daytime, "08:59", false},
		{"daytime night", daytime, "23:30", false},
		{"no window", model.Preferences{}, "23:30", false},
		{"half window", model.Preferences{QuietHoursStart: "22:00"}, "23:30", false},
		{"empty window", model.Preferences{QuietHoursStart: "10:00", QuietHoursEnd: "10:00"}, "10:00", false},
		{"garbage", model.Preferences{QuietHoursStart: "late", QuietHoursEnd: "early"}, "23:30", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseClock(tt.at)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := InQuietHours(tt.prefs, m); got != tt.quiet {
				t.Errorf("at %s: expected quiet=%v, got %v", tt.at, tt.quiet, got)
			}
		})
	}
}

func TestValidateQuietHours(t *testing.T) {
	if err := ValidateQuietHours("", ""); err != nil {
		t.Errorf("empty window should be valid: %v", err)
	}
	if err := ValidateQuietHours("22:00", "07:00"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	for _, pair := range [][2]string{{"22:00", ""}, {"", "07:00"}, {"25:00", "07:00"}, {"22:00", "7"}} {
		if err := ValidateQuietHours(pair[0], pair[1]); !errors.Is(err, ErrInvalidQuietHours) {
			t.Errorf("%v: expected ErrInvalidQuietHours, got %v", pair, err)
		}
	}
}
