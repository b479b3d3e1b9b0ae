// Package pricing holds the time-based tariff. All amounts are integer
// yen and all durations integer seconds; nothing here touches storage
// or the clock, so the rules are trivially table-testable.
package pricing

const (
	// BaseFee covers the first hour, charged in full from the first second.
	BaseFee = 500

	// FreeSeconds is how much presence the base fee covers.
	FreeSeconds = 3600

	// PerMinuteRate applies to every started minute beyond the first hour.
	PerMinuteRate = 8

	// MaxDailyCharge caps the time cost of a single session.
	MaxDailyCharge = 2000
)

// ComputeTimeCost maps elapsed presence to its time charge. Negative
// input (clock skew) is treated as zero rather than producing a
// negative bill.
func ComputeTimeCost(elapsedSeconds int) int {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	cost := BaseFee
	if elapsedSeconds > FreeSeconds {
		over := elapsedSeconds - FreeSeconds
		// Started minutes round up.
		minutes := (over + 59) / 60
		cost += minutes * PerMinuteRate
	}

	if cost > MaxDailyCharge {
		return MaxDailyCharge
	}
	return cost
}

// ApplyMinimumDuration raises the billed duration to minSeconds. Zero
// (or negative) minSeconds disables the policy. The raw elapsed value
// is the caller's to record; only billing sees the adjusted one.
func ApplyMinimumDuration(elapsedSeconds, minSeconds int) int {
	if minSeconds > 0 && elapsedSeconds < minSeconds {
		return minSeconds
	}
	return elapsedSeconds
}
