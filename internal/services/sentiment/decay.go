package sentiment

import "time"

// DecayWeight steps an item's weight down with publish age: full weight for
// the first 15 minutes, down to a low floor beyond 24 hours. Items without a
// publish timestamp get the mid-band weight.
func DecayWeight(age time.Duration) float64 {
	switch {
	case age <= 15*time.Minute:
		return 1.0
	case age <= time.Hour:
		return 0.8
	case age <= 4*time.Hour:
		return 0.6
	case age <= 12*time.Hour:
		return 0.4
	case age <= 24*time.Hour:
		return 0.25
	default:
		return 0.1
	}
}

// unknownAgeWeight is used when an item carries no publish timestamp.
const unknownAgeWeight = 0.6
