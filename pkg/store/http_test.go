package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStoreLookupAbsentIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s, err := NewHTTPStore(srv.URL, "key")
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.Lookup(context.Background(), "9999")
	if err != nil {
		t.Fatalf("absent lookup errored: %v", err)
	}
	if rec != nil {
		t.Fatalf("absent lookup returned %+v", rec)
	}
}

func TestHTTPStoreUpsertRoundTrip(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody JobRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, _ := NewHTTPStore(srv.URL, "secret")
	err := s.Upsert(context.Background(), JobRecord{RO: "3095", Shop: "AutoSport"})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/jobs/3095" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody.Shop != "AutoSport" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestHTTPStoreServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "base offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	s, _ := NewHTTPStore(srv.URL, "")
	if err := s.Upsert(context.Background(), JobRecord{RO: "3095"}); err == nil {
		t.Fatalf("want error on 502")
	}
}

func TestMemoryStoreUpsertIdempotentKeepsHistory(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	if err := m.Upsert(ctx, JobRecord{RO: "3095", FlowHistory: []string{"created"}}); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendFlow(ctx, "3095", "scheduled"); err != nil {
		t.Fatal(err)
	}
	if err := m.Upsert(ctx, JobRecord{RO: "3095", Status: "ready"}); err != nil {
		t.Fatal(err)
	}
	rec := m.Get("3095")
	if rec.Status != "ready" {
		t.Errorf("status = %q", rec.Status)
	}
	if len(rec.FlowHistory) != 2 {
		t.Errorf("history = %v, want append-only survival", rec.FlowHistory)
	}
}
