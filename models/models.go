package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Report statuses as normalized at the upstream boundary.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In-progress"
	StatusResolved   = "Resolved"
)

// EpochMillis is a timestamp in milliseconds since the Unix epoch. The
// upstream API sends both numeric epochs and RFC3339 strings; anything
// unparseable decodes to 0.
type EpochMillis int64

// UnmarshalJSON accepts a JSON number (epoch milliseconds) or an RFC3339
// string. Malformed values degrade to 0 rather than erroring.
func (m *EpochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*m = 0
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
				*m = 0
				return nil
			}
		}
		*m = EpochMillis(t.UnixMilli())
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*m = 0
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		*m = 0
		return nil
	}
	*m = EpochMillis(int64(f))
	return nil
}

// MarshalJSON emits the epoch milliseconds as a JSON number.
func (m EpochMillis) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(m))
}

// Time converts the epoch milliseconds to a time.Time.
func (m EpochMillis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

// RawReport is a report as the upstream API sends it: loosely typed, with
// inconsistent optional fields (photoUrl vs photoUrls) and mixed timestamp
// forms.
type RawReport struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	Description    string      `json:"description"`
	ChiefComplaint string      `json:"chiefComplaint"`
	PhotoURL       string      `json:"photoUrl"`
	PhotoURLs      []string    `json:"photoUrls"`
	ResponderID    string      `json:"responderId"`
	Status         string      `json:"status"`
	CreatedAt      EpochMillis `json:"createdAt"`
	UpdatedAt      EpochMillis `json:"updatedAt"`
	UserID         string      `json:"userId"`
	Latitude       *float64    `json:"latitude"`
	Longitude      *float64    `json:"longitude"`
}

// Report is the canonical internal report shape the kernel operates on.
type Report struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	Description    string      `json:"description"`
	ChiefComplaint string      `json:"chief_complaint,omitempty"`
	PhotoURL       string      `json:"photo_url,omitempty"`
	PhotoURLs      []string    `json:"photo_urls,omitempty"`
	ResponderID    string      `json:"responder_id,omitempty"`
	Status         string      `json:"status"`
	CreatedAt      EpochMillis `json:"created_at"`
	UpdatedAt      EpochMillis `json:"updated_at"`
	UserID         string      `json:"user_id,omitempty"`
	Latitude       *float64    `json:"latitude,omitempty"`
	Longitude      *float64    `json:"longitude,omitempty"`
}

// NormalizeReport converts an upstream report into the canonical shape.
// PhotoURL falls back to the first photoUrls entry so downstream code only
// ever looks at one field, and the status casing is canonicalized.
func NormalizeReport(r RawReport) Report {
	photoURL := strings.TrimSpace(r.PhotoURL)
	if photoURL == "" && len(r.PhotoURLs) > 0 {
		photoURL = strings.TrimSpace(r.PhotoURLs[0])
	}
	return Report{
		ID:             r.ID,
		Type:           r.Type,
		Description:    r.Description,
		ChiefComplaint: r.ChiefComplaint,
		PhotoURL:       photoURL,
		PhotoURLs:      r.PhotoURLs,
		ResponderID:    r.ResponderID,
		Status:         NormalizeStatus(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		UserID:         r.UserID,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
	}
}

// NormalizeStatus maps the status field, which is case-insensitive in
// practice, onto its canonical spelling. Unknown statuses pass through
// trimmed.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return StatusPending
	case "in-progress", "in progress":
		return StatusInProgress
	case "resolved":
		return StatusResolved
	default:
		return strings.TrimSpace(status)
	}
}

// RawNotification is a notification as the upstream API sends it.
type RawNotification struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Kind      string      `json:"kind"`
	ReportID  string      `json:"reportId"`
	Read      bool        `json:"read"`
	CreatedAt EpochMillis `json:"createdAt"`
}

// Notification is the canonical internal notification shape.
type Notification struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Kind      string      `json:"kind"`
	ReportID  string      `json:"report_id,omitempty"`
	Read      bool        `json:"read"`
	CreatedAt EpochMillis `json:"created_at"`
}

// NormalizeNotification converts an upstream notification into the canonical
// shape.
func NormalizeNotification(n RawNotification) Notification {
	return Notification{
		ID:        n.ID,
		Title:     n.Title,
		Kind:      n.Kind,
		ReportID:  n.ReportID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// StreamEvent is a message from the upstream live event stream.
type StreamEvent struct {
	Type   string     `json:"type"`
	Report *RawReport `json:"report,omitempty"`
}

// BroadcastMessage represents a message sent to WebSocket clients
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Timestamp        string `json:"timestamp,omitempty"`
	ConnectedClients int    `json:"connected_clients,omitempty"`
	LastSnapshotSeq  int64  `json:"last_snapshot_seq,omitempty"`
}
