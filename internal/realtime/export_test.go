package realtime

import "time"

// SetRetryBounds shortens the resubscribe backoff
func (b *RedisBridge) SetRetryBounds(lo, hi time.Duration) {
	b.minRetry = lo
	b.maxRetry = hi
}
