package timeline

import "math"

// MicrosPerSecond is the native time unit ratio: drafts store every position
// and duration as integer microseconds.
const MicrosPerSecond = 1_000_000

// MaxSeconds is the largest time in seconds that still fits in int64
// microseconds.
const MaxSeconds = math.MaxInt64 / MicrosPerSecond

// SecondsToMicros converts seconds to microseconds, truncating toward zero.
func SecondsToMicros(seconds float64) int64 {
	return int64(seconds * MicrosPerSecond)
}

// MicrosToSeconds converts microseconds back to seconds.
func MicrosToSeconds(micros int64) float64 {
	return float64(micros) / MicrosPerSecond
}
