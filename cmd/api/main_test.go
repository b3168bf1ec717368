package main

import (
	"testing"
	"time"
)

func TestSweepInterval(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{"hour ttl", time.Hour, 30 * time.Minute},
		{"short ttl floored", 90 * time.Second, time.Minute},
		{"minute ttl floored", time.Minute, time.Minute},
		{"day ttl", 24 * time.Hour, 12 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sweepInterval(tt.ttl); got != tt.want {
				t.Fatalf("sweepInterval(%v) = %v, want %v", tt.ttl, got, tt.want)
			}
		})
	}
}
