package model

import "testing"

func TestDeriveStatus_Table(t *testing.T) {
	cases := []struct {
		uploading, paused, all bool
		want                   BatchStatus
	}{
		{false, false, false, StatusIdle},
		{false, false, true, StatusIdle},
		{true, false, false, StatusRunning},
		{true, false, true, StatusDone},
		{true, true, false, StatusPaused},
		{true, true, true, StatusPaused},
	}

	for _, tc := range cases {
		if got := DeriveStatus(tc.uploading, tc.paused, tc.all); got != tc.want {
			t.Fatalf("DeriveStatus(%v,%v,%v) = %q, want %q", tc.uploading, tc.paused, tc.all, got, tc.want)
		}
	}
}

func TestAllProcessed(t *testing.T) {
	if !AllProcessed(nil) {
		t.Fatalf("expected empty list to be all processed")
	}
	entries := []Entry{{Filename: "a", Processed: true}, {Filename: "b"}}
	if AllProcessed(entries) {
		t.Fatalf("expected partially processed list to report false")
	}
	entries[1].Processed = true
	if !AllProcessed(entries) {
		t.Fatalf("expected fully processed list to report true")
	}
}

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from BatchStatus
		to   BatchStatus
	}{
		{StatusIdle, StatusRunning},
		{StatusRunning, StatusPaused},
		{StatusPaused, StatusRunning},
		{StatusRunning, StatusDone},
		{StatusDone, StatusDone},
		{StatusPaused, StatusIdle},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from BatchStatus
		to   BatchStatus
	}{
		{StatusIdle, StatusPaused},
		{StatusDone, StatusPaused},
		{"not_a_state", StatusIdle},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
	if err := CheckTransition(StatusIdle, StatusPaused); err == nil {
		t.Fatalf("expected illegal transition error")
	}
}

func TestStatusLabels(t *testing.T) {
	want := map[BatchStatus]string{
		StatusIdle:    "Upload",
		StatusRunning: "Uploading",
		StatusPaused:  "Paused",
		StatusDone:    "Done",
	}
	for status, label := range want {
		if got := status.Label(); got != label {
			t.Fatalf("%q label = %q, want %q", status, got, label)
		}
	}
}
