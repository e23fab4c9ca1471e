package model

import (
	"testing"
	"time"
)

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		exp  time.Time
		want bool
	}{
		{"future expiry", now.Add(time.Hour), false},
		{"exactly at expiry", now, false},
		{"just past expiry", now.Add(-time.Nanosecond), true},
		{"long past expiry", now.Add(-7 * 24 * time.Hour), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Session{RefreshExpiresAt: tc.exp}
			if got := s.Expired(now); got != tc.want {
				t.Fatalf("Expired(%v) with exp %v = %v, want %v", now, tc.exp, got, tc.want)
			}
		})
	}
}
