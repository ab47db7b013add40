package ingest

import "testing"

func TestShouldUseStreaming(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want bool
	}{
		{"zero bytes", 0, false},
		{"tiny file", 512, false},
		{"one byte under threshold", StreamingThresholdBytes - 1, false},
		{"exactly at threshold", StreamingThresholdBytes, true},
		{"one byte over threshold", StreamingThresholdBytes + 1, true},
		{"large file", 50 << 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldUseStreaming(tt.size); got != tt.want {
				t.Errorf("ShouldUseStreaming(%d) = %v, want %v", tt.size, got, tt.want)
			}
		})
	}
}

func TestShouldUseWorker(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want bool
	}{
		{"tiny file", 512, false},
		{"streaming but small", 2 << 20, false},
		{"exactly at threshold stays inline", WorkerThresholdBytes, false},
		{"one byte over threshold", WorkerThresholdBytes + 1, true},
		{"large file", 50 << 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldUseWorker(tt.size); got != tt.want {
				t.Errorf("ShouldUseWorker(%d) = %v, want %v", tt.size, got, tt.want)
			}
		})
	}
}
