package models

import (
	"encoding/json"
	"testing"
)

func TestEpochMillis_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  EpochMillis
	}{
		{
			name:  "numeric epoch millis",
			input: `1700000000000`,
			want:  1700000000000,
		},
		{
			name:  "rfc3339 string",
			input: `"1970-01-01T00:10:00Z"`,
			want:  600000,
		},
		{
			name:  "rfc3339 with offset",
			input: `"1970-01-01T01:10:00+01:00"`,
			want:  600000,
		},
		{
			name:  "malformed string degrades to zero",
			input: `"yesterday"`,
			want:  0,
		},
		{
			name:  "null degrades to zero",
			input: `null`,
			want:  0,
		},
		{
			name:  "boolean degrades to zero",
			input: `true`,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m EpochMillis
			if err := json.Unmarshal([]byte(tt.input), &m); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v, timestamps must never error", tt.input, err)
			}
			if m != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, m, tt.want)
			}
		})
	}
}

func TestNormalizeReport_PhotoURLFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  RawReport
		want string
	}{
		{
			name: "photoUrl wins",
			raw:  RawReport{PhotoURL: "https://cdn/a.jpg", PhotoURLs: []string{"https://cdn/b.jpg"}},
			want: "https://cdn/a.jpg",
		},
		{
			name: "first photoUrls entry when photoUrl empty",
			raw:  RawReport{PhotoURLs: []string{" https://cdn/b.jpg ", "https://cdn/c.jpg"}},
			want: "https://cdn/b.jpg",
		},
		{
			name: "neither present",
			raw:  RawReport{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeReport(tt.raw).PhotoURL; got != tt.want {
				t.Errorf("PhotoURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"pending", StatusPending},
		{"PENDING", StatusPending},
		{" Pending ", StatusPending},
		{"in-progress", StatusInProgress},
		{"In Progress", StatusInProgress},
		{"resolved", StatusResolved},
		{"escalated", "escalated"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeStatus(tt.input); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRawReport_MixedTimestampForms(t *testing.T) {
	payload := `[
		{"id":"a","type":"Fire","createdAt":1000},
		{"id":"b","type":"Fire","createdAt":"1970-01-01T00:00:01Z"},
		{"id":"c","type":"Fire"}
	]`
	var raw []RawReport
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if raw[0].CreatedAt != 1000 || raw[1].CreatedAt != 1000 {
		t.Errorf("numeric and RFC3339 forms should agree: %d vs %d", raw[0].CreatedAt, raw[1].CreatedAt)
	}
	if raw[2].CreatedAt != 0 {
		t.Errorf("missing createdAt = %d, want 0", raw[2].CreatedAt)
	}
}
