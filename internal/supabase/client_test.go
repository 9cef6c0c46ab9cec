package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sbabadag/sevapp/internal/model"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewClient(server.URL, "anon-key"), server
}

func TestNotificationsQueryAndDecode(t *testing.T) {
	var gotQuery, gotAPIKey, gotAuth string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")

		json.NewEncoder(w).Encode([]model.Notification{
			{ID: 2, UserID: "u1", Title: "Second", Type: model.NotificationOrder},
			{ID: 1, UserID: "u1", Title: "First", Type: model.NotificationGeneral},
		})
	})
	defer server.Close()

	rows, err := client.Notifications(context.Background(), "u1", 50)
	if err != nil {
		t.Fatalf("Notifications: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != 2 || rows[1].Title != "First" {
		t.Errorf("decoded rows = %+v", rows)
	}

	q := mustParseQuery(t, gotQuery)
	if q.Get("user_id") != "eq.u1" {
		t.Errorf("user_id filter = %q", q.Get("user_id"))
	}
	if q.Get("order") != "created_at.desc" {
		t.Errorf("order = %q", q.Get("order"))
	}
	if q.Get("limit") != "50" {
		t.Errorf("limit = %q", q.Get("limit"))
	}
	if gotAPIKey != "anon-key" {
		t.Errorf("apikey header = %q", gotAPIKey)
	}
	if gotAuth != "Bearer anon-key" {
		t.Errorf("Authorization = %q before sign-in", gotAuth)
	}
}

func TestUnreadCountUsesHeadAndContentRange(t *testing.T) {
	var gotMethod, gotPrefer, gotRead string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPrefer = r.Header.Get("Prefer")
		gotRead = r.URL.Query().Get("read")
		w.Header().Set("Content-Range", "0-24/57")
	})
	defer server.Close()

	count, err := client.UnreadCount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 57 {
		t.Errorf("count = %d, want 57", count)
	}
	if gotMethod != http.MethodHead {
		t.Errorf("method = %q, want HEAD", gotMethod)
	}
	if gotPrefer != "count=exact" {
		t.Errorf("Prefer = %q", gotPrefer)
	}
	if gotRead != "is.false" {
		t.Errorf("read filter = %q", gotRead)
	}
}

func TestMarkReadPatchesSingleRow(t *testing.T) {
	var gotMethod, gotID string
	var gotBody map[string]bool
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotID = r.URL.Query().Get("id")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	if err := client.MarkRead(context.Background(), 42); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", gotMethod)
	}
	if gotID != "eq.42" {
		t.Errorf("id filter = %q", gotID)
	}
	if !gotBody["read"] {
		t.Errorf("body = %v, want read:true", gotBody)
	}
}

func TestMarkAllReadScopesToUnreadRows(t *testing.T) {
	var gotUser, gotRead string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.URL.Query().Get("user_id")
		gotRead = r.URL.Query().Get("read")
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	if err := client.MarkAllRead(context.Background(), "u1"); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if gotUser != "eq.u1" {
		t.Errorf("user_id filter = %q", gotUser)
	}
	if gotRead != "is.false" {
		t.Errorf("read filter = %q", gotRead)
	}
}

func TestCreateNotificationReturnsRepresentation(t *testing.T) {
	var gotPrefer string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]model.Notification{
			{ID: 9, UserID: "u1", Title: "Hello", Type: model.NotificationGeneral},
		})
	})
	defer server.Close()

	created, err := client.CreateNotification(context.Background(), model.Notification{
		UserID: "u1", Title: "Hello", Type: model.NotificationGeneral,
	})
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if created.ID != 9 {
		t.Errorf("created id = %d, want 9", created.ID)
	}
	if gotPrefer != "return=representation" {
		t.Errorf("Prefer = %q", gotPrefer)
	}
}

func TestSignInInstallsSession(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if grant := r.URL.Query().Get("grant_type"); grant != "password" {
			t.Errorf("grant_type = %q", grant)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
			"user":          map[string]string{"id": "u1", "email": "user@example.com"},
		})
	})
	defer server.Close()

	session, err := client.SignIn(context.Background(), "user@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.UserID != "u1" || session.RefreshToken != "refresh-1" {
		t.Errorf("session = %+v", session)
	}
	if session.Expired(time.Now()) {
		t.Error("fresh session reported expired")
	}
	if client.UserID() != "u1" {
		t.Errorf("client UserID = %q after sign-in", client.UserID())
	}
	if got := client.accessToken(); got != "access-1" {
		t.Errorf("accessToken = %q after sign-in", got)
	}
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"JWT expired"}`, http.StatusUnauthorized)
	})
	defer server.Close()

	_, err := client.Notifications(context.Background(), "u1", 10)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !IsAuthError(err) {
		t.Errorf("IsAuthError = false for %v", err)
	}
}

func TestServerErrorIsAPIError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer server.Close()

	_, err := client.Notifications(context.Background(), "u1", 10)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if IsAuthError(err) {
		t.Errorf("500 classified as auth error: %v", err)
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "7")
	if got := retryAfterDuration(resp, 0); got != 7*time.Second {
		t.Errorf("honored Retry-After = %v, want 7s", got)
	}

	resp.Header.Del("Retry-After")
	if got := retryAfterDuration(resp, 0); got != time.Second {
		t.Errorf("backoff attempt 0 = %v, want 1s", got)
	}
	if got := retryAfterDuration(resp, 2); got != 4*time.Second {
		t.Errorf("backoff attempt 2 = %v, want 4s", got)
	}
}

func TestParseContentRangeTotal(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"0-24/57", 57, false},
		{"*/0", 0, false},
		{"*/*", 0, true},
		{"garbage", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseContentRangeTotal(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseContentRangeTotal(%q) err = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseContentRangeTotal(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func mustParseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	q, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("parsing query %q: %v", raw, err)
	}
	return q
}
