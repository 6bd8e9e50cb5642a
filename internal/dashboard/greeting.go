package dashboard

import "time"

// IST is India Standard Time, UTC+05:30, with no daylight saving.
var IST = time.FixedZone("IST", 5*3600+30*60)

// Greeting buckets the hour of t in IST: Morning [05,12), Afternoon [12,17),
// Evening [17,21), Night otherwise.
func Greeting(t time.Time) string {
	switch h := t.In(IST).Hour(); {
	case h >= 5 && h < 12:
		return "Morning"
	case h >= 12 && h < 17:
		return "Afternoon"
	case h >= 17 && h < 21:
		return "Evening"
	default:
		return "Night"
	}
}
