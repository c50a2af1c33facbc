package models

import (
	"testing"
	"time"
)

func TestCanonicalEventKind(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"click", EventClick, true},
		{"page_view", EventClick, true},
		{"signup", EventSignup, true},
		{"add_to_cart", EventSignup, true},
		{"checkout", EventCheckout, true},
		{"purchase", EventPurchase, true},
		{"PURCHASE", EventPurchase, true},
		{" checkout ", EventCheckout, true},
		{"refund", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := CanonicalEventKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CanonicalEventKind(%q) = %q/%v, want %q/%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"truncates clock time",
			time.Date(2024, 6, 1, 15, 30, 45, 0, time.UTC),
			time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"keys by the UTC day, not the local one",
			time.Date(2024, 6, 1, 23, 0, 0, 0, ny),
			time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Day(tt.in); !got.Equal(tt.want) {
				t.Errorf("Day(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFunnelEventDate(t *testing.T) {
	event := FunnelEvent{Timestamp: time.Date(2024, 6, 1, 18, 45, 0, 0, time.UTC)}
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if got := event.Date(); !got.Equal(want) {
		t.Errorf("Date() = %v, want %v", got, want)
	}
}
