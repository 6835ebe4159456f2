package helpers

import "time"

func IntSecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Second
}

func IntMillisecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Millisecond
}

// DurationMillis converts to uint32 milliseconds, as used by the scheduler clock.
func DurationMillis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}
