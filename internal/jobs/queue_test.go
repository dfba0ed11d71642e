package jobs

import (
	"testing"
	"time"
)

func TestRetryDelayDoublesPerRetry(t *testing.T) {
	tests := []struct {
		retried int
		want    time.Duration
	}{
		{0, time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
	}
	for _, tt := range tests {
		if got := retryDelay(time.Minute, tt.retried); got != tt.want {
			t.Errorf("retryDelay(1m, %d) = %s, want %s", tt.retried, got, tt.want)
		}
	}
}
