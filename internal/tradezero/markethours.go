package tradezero

import (
	"time"
	_ "time/tzdata"
)

var eastern = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute, Second int
}

func (c Clock) offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute + time.Duration(c.Second)*time.Second
}

var (
	MarketOpen  = Clock{Hour: 9, Minute: 30}
	MarketClose = Clock{Hour: 16}
)

func EasternNow(now time.Time) time.Time {
	return now.In(eastern)
}

// TimeBetween reports whether t's Eastern time of day lies strictly between
// from and to.
func TimeBetween(t time.Time, from, to Clock) bool {
	et := EasternNow(t)
	wall := Clock{Hour: et.Hour(), Minute: et.Minute(), Second: et.Second()}.offset() + time.Duration(et.Nanosecond())
	return from.offset() < wall && wall < to.offset()
}

// IsMarketOpen checks regular hours only; weekends and holidays are not
// considered.
func IsMarketOpen(t time.Time) bool {
	return TimeBetween(t, MarketOpen, MarketClose)
}

func easternClock(t time.Time) string {
	return EasternNow(t).Format("15:04:05")
}
