package entity

import (
	"testing"
	"time"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    ScanStatus
		expiresAt time.Time
		want      ScanStatus
	}{
		{"pending before expiry", ScanStatusPending, now.Add(time.Hour), ScanStatusPending},
		{"pending exactly at expiry", ScanStatusPending, now, ScanStatusExpired},
		{"pending past expiry", ScanStatusPending, now.Add(-time.Minute), ScanStatusExpired},
		{"processing past expiry", ScanStatusProcessing, now.Add(-time.Minute), ScanStatusExpired},
		{"completed never downgrades", ScanStatusCompleted, now.Add(-time.Hour), ScanStatusCompleted},
		{"failed never downgrades", ScanStatusFailed, now.Add(-time.Hour), ScanStatusFailed},
		{"expired stays expired", ScanStatusExpired, now.Add(time.Hour), ScanStatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScanSession{Status: tt.status, ExpiresAt: tt.expiresAt}
			if got := s.EffectiveStatus(now); got != tt.want {
				t.Errorf("EffectiveStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWritable(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    ScanStatus
		expiresAt time.Time
		want      bool
	}{
		{"pending live", ScanStatusPending, now.Add(time.Hour), true},
		{"processing live", ScanStatusProcessing, now.Add(time.Hour), true},
		{"pending exactly at expiry", ScanStatusPending, now, false},
		{"pending past expiry", ScanStatusPending, now.Add(-time.Second), false},
		{"completed", ScanStatusCompleted, now.Add(time.Hour), false},
		{"failed", ScanStatusFailed, now.Add(time.Hour), false},
		{"expired", ScanStatusExpired, now.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScanSession{Status: tt.status, ExpiresAt: tt.expiresAt}
			if got := s.Writable(now); got != tt.want {
				t.Errorf("Writable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []ScanStatus{ScanStatusCompleted, ScanStatusFailed, ScanStatusExpired}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%q not reported terminal", s)
		}
	}
	live := []ScanStatus{ScanStatusPending, ScanStatusProcessing}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("%q reported terminal", s)
		}
	}
	if ScanStatus("garbage").IsTerminal() {
		t.Error("unknown status reported terminal")
	}
}

func TestMeasurementNamesAreValid(t *testing.T) {
	for _, name := range MeasurementNames {
		if !IsValidMeasurementName(name) {
			t.Errorf("canonical name %q rejected", name)
		}
	}
	if IsValidMeasurementName("torso") {
		t.Error("unknown measurement name accepted")
	}
}
