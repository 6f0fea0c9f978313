// Package visual turns scores and error buckets into chart descriptions the
// browser UI renders. Nothing here draws pixels.
package visual

// Score colors.
const (
	Green  = "#00ff00"
	Yellow = "#ffc000"
	Orange = "#ff4b4b"
	Red    = "#ff0000"
)

// Color maps a 0-100 score onto the four-step traffic-light scale.
func Color(score float64) string {
	switch {
	case score >= 90:
		return Green
	case score >= 75:
		return Yellow
	case score >= 50:
		return Orange
	default:
		return Red
	}
}
