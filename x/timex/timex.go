// Package timex collects small tick/period conversions; config/vcu.go uses
// it to turn alarm periods and the counter modulus into kernel ticks.
package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// TicksForDuration converts d to a whole number of ticks of tickPeriod,
// rounding down. Used to translate alarm/schedule-table offsets expressed
// as durations into the counter's native tick unit.
func TicksForDuration(d time.Duration, tickPeriod time.Duration) uint64 {
	if tickPeriod <= 0 {
		return 0
	}
	if d <= 0 {
		return 0
	}
	return uint64(d / tickPeriod)
}
