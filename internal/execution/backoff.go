package execution

import "time"

const maxSweepBackoff = time.Hour

// linearBackoff interval × failures，没有失败时就是 interval
func linearBackoff(interval time.Duration, failures int) time.Duration {
	if failures < 1 {
		return interval
	}
	return interval * time.Duration(failures)
}

// doublingBackoff interval × 2^failures，最长一小时
func doublingBackoff(interval time.Duration, failures int) time.Duration {
	d := interval
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxSweepBackoff {
			return maxSweepBackoff
		}
	}
	return d
}
