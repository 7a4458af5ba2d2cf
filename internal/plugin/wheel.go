package plugin

// WheelDelta is the scroll amount of one wheel notch. Amounts sent to
// dispatchers are in these units, so the default magnitude of 160 is a
// little over one notch.
const WheelDelta = 120

// Notches converts a signed amount into a signed notch count, rounding to
// the nearest notch. A non-zero amount always moves at least one notch.
func Notches(amount int) int {
	if amount == 0 {
		return 0
	}

	sign := 1
	if amount < 0 {
		sign, amount = -1, -amount
	}

	n := (amount + WheelDelta/2) / WheelDelta
	if n < 1 {
		n = 1
	}
	return sign * n
}
