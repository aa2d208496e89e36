package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListAllReports_NormalizesAtBoundary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"r1","type":"Fire","status":"PENDING","createdAt":1000},
			{"id":"r2","type":"Flood","status":"resolved","createdAt":"1970-01-01T00:00:02Z","photoUrls":["https://cdn/x.jpg"]}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	reports, err := client.ListAllReports(context.Background())
	if err != nil {
		t.Fatalf("ListAllReports() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].Status != "Pending" {
		t.Errorf("status not normalized: %q", reports[0].Status)
	}
	if reports[1].CreatedAt != 2000 {
		t.Errorf("RFC3339 createdAt = %d, want 2000", reports[1].CreatedAt)
	}
	if reports[1].PhotoURL != "https://cdn/x.jpg" {
		t.Errorf("PhotoURL fallback = %q, want first photoUrls entry", reports[1].PhotoURL)
	}
}

func TestListNotifications(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notifications" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("userId"); got != "admin" {
			t.Errorf("userId = %q, want admin", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"n1","title":"New report","kind":"new","reportId":"r1","read":false,"createdAt":100}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	notifications, err := client.ListNotifications(context.Background(), "admin")
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(notifications) != 1 || notifications[0].ReportID != "r1" {
		t.Errorf("unexpected notifications: %+v", notifications)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	var gotPath string
	var gotBody map[string]bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if err := client.MarkNotificationRead(context.Background(), "n1", true); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	if gotPath != "/api/notifications/n1/read" {
		t.Errorf("path = %q", gotPath)
	}
	if !gotBody["read"] {
		t.Errorf("body = %v, want read=true", gotBody)
	}
}

func TestClient_UpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.ListAllReports(context.Background()); err == nil {
		t.Error("ListAllReports() should surface non-200 status")
	}
	if err := client.DeleteNotification(context.Background(), "n1"); err == nil {
		t.Error("DeleteNotification() should surface non-2xx status")
	}
}
