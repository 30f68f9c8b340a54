package utils

import (
	"fmt"
	"time"
)

// CeilDiv returns ceil(x / y) without going through floating point,
// so it stays exact for sizes beyond 2^53.
func CeilDiv(x, y uint64) uint64 {
	if y == 0 {
		return 0
	}
	res := x / y
	if x%y != 0 {
		res++
	}
	return res
}

func ByteCountSI(b int64) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(b)/float64(div), "kMGTPE"[exp])
}

// BitsPerSecond is the throughput of n bytes moved in d.
func BitsPerSecond(n int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n*8) / d.Seconds()
}
