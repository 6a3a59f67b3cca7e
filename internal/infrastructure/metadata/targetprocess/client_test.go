package targetprocess

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newMetadataServer(t *testing.T, sampleCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/Bugs":
			if sampleCalls != nil {
				atomic.AddInt32(sampleCalls, 1)
			}
			if got := r.URL.Query().Get("take"); got != "1" {
				t.Errorf("take = %q", got)
			}
			_, _ = w.Write([]byte(`{"Items":[{
				"ResourceType":"Bug",
				"Id":1,
				"Name":"Sample",
				"Severity":{"Name":"Critical"},
				"CustomFields":[{"Name":"EscalationLevel","Value":"2"},{"Name":"RootCause","Value":null}]
			}]}`))
		case "/api/v1/EntityStates":
			_, _ = w.Write([]byte(`{"Items":[
				{"Id":10,"Name":"Open","IsInitial":true},
				{"Id":11,"Name":"Fixed","IsFinal":true}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGetEntityMetadataSamplesLiveEntity(t *testing.T) {
	server := newMetadataServer(t, nil)
	defer server.Close()

	client := New(server.URL, "token", nil)

	meta, err := client.GetEntityMetadata(context.Background(), "Bug")
	if err != nil {
		t.Fatalf("GetEntityMetadata() error = %v", err)
	}

	if meta.Source != sourceLive {
		t.Fatalf("source = %q", meta.Source)
	}
	wantStandard := []string{"Id", "Name", "Severity"}
	if len(meta.StandardFields) != len(wantStandard) {
		t.Fatalf("standard fields = %v", meta.StandardFields)
	}
	for i, name := range wantStandard {
		if meta.StandardFields[i] != name {
			t.Fatalf("standard fields not sorted: %v", meta.StandardFields)
		}
	}
	if len(meta.CustomFields) != 2 || meta.CustomFields[0] != "EscalationLevel" {
		t.Fatalf("custom fields = %v", meta.CustomFields)
	}
	if len(meta.States) != 2 || meta.States[1] != "Fixed" {
		t.Fatalf("states = %v", meta.States)
	}
	if len(meta.ProcessStates) != 2 || !meta.ProcessStates[0].IsInitial || !meta.ProcessStates[1].IsFinal {
		t.Fatalf("process states = %+v", meta.ProcessStates)
	}
}

func TestGetEntityMetadataCachesPerEntityType(t *testing.T) {
	var sampleCalls int32
	server := newMetadataServer(t, &sampleCalls)
	defer server.Close()

	client := New(server.URL, "token", nil)

	for i := 0; i < 3; i++ {
		if _, err := client.GetEntityMetadata(context.Background(), "Bug"); err != nil {
			t.Fatalf("GetEntityMetadata() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&sampleCalls); got != 1 {
		t.Fatalf("expected one live fetch, got %d", got)
	}
}

func TestGetEntityMetadataCacheExpires(t *testing.T) {
	var sampleCalls int32
	server := newMetadataServer(t, &sampleCalls)
	defer server.Close()

	client := New(server.URL, "token", nil)
	current := time.Now()
	client.now = func() time.Time { return current }

	if _, err := client.GetEntityMetadata(context.Background(), "Bug"); err != nil {
		t.Fatalf("GetEntityMetadata() error = %v", err)
	}
	current = current.Add(defaultCacheTTL + time.Minute)
	if _, err := client.GetEntityMetadata(context.Background(), "Bug"); err != nil {
		t.Fatalf("GetEntityMetadata() error = %v", err)
	}
	if got := atomic.LoadInt32(&sampleCalls); got != 2 {
		t.Fatalf("expected refetch after TTL, got %d fetches", got)
	}
}

func TestGetEntityMetadataFallsBackToDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "token", nil)

	meta, err := client.GetEntityMetadata(context.Background(), "UserStory")
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if meta.Source != sourceDefault {
		t.Fatalf("source = %q", meta.Source)
	}
	if meta.EntityType != "UserStory" || len(meta.StandardFields) == 0 {
		t.Fatalf("defaults not populated: %+v", meta)
	}
}

func TestGetEntityMetadataRejectsEmptyEntityType(t *testing.T) {
	client := New("http://example.invalid", "token", nil)

	if _, err := client.GetEntityMetadata(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty entity type")
	}
}
