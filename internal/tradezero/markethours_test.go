package tradezero

import (
	"testing"
	"time"
)

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"mid session EDT", time.Date(2024, time.June, 3, 15, 0, 0, 0, time.UTC), true},
		{"mid session EST", time.Date(2024, time.January, 8, 16, 0, 0, 0, time.UTC), true},
		{"before open", time.Date(2024, time.June, 3, 13, 29, 59, 0, time.UTC), false},
		{"exactly open", time.Date(2024, time.June, 3, 13, 30, 0, 0, time.UTC), false},
		{"just after open", time.Date(2024, time.June, 3, 13, 30, 1, 0, time.UTC), true},
		{"exactly close", time.Date(2024, time.June, 3, 20, 0, 0, 0, time.UTC), false},
		{"after close EST", time.Date(2024, time.January, 8, 21, 30, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsMarketOpen(tc.at); got != tc.want {
				t.Fatalf("IsMarketOpen(%s) = %v; want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestTimeBetweenUsesWallClockOnDSTChange(t *testing.T) {
	// 2024-03-10 is 23 hours long in New York; 10:00 EDT is 14:00 UTC.
	at := time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC)
	if !TimeBetween(at, Clock{Hour: 9, Minute: 59}, Clock{Hour: 10, Minute: 1}) {
		t.Fatal("TimeBetween() = false; want true at 10:00 EDT")
	}
}

func TestEasternClock(t *testing.T) {
	at := time.Date(2024, time.June, 3, 14, 5, 9, 0, time.UTC)
	if got := easternClock(at); got != "10:05:09" {
		t.Fatalf("easternClock() = %q; want 10:05:09", got)
	}
}
