package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tabworks/tabula/client"
)

func testBinder(t *testing.T, handler http.Handler) (*Binder, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cl := client.New(srv.URL, 5*time.Second, 0, zerolog.Nop())
	return NewBinder("/api/stock_items", "pk", cl, zerolog.Nop()), srv
}

func TestBinderFetchNormalizesEnvelope(t *testing.T) {
	b, _ := testBinder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"count": 42,
			"next": "/api/stock_items?limit=25&offset=25",
			"previous": null,
			"results": [{"pk": 99, "status": "60", "quantity": 5}]
		}`))
	}))

	page, err := b.Fetch(context.Background(), url.Values{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if page.Count != 42 {
		t.Errorf("count = %d", page.Count)
	}
	if page.Next == "" || page.Previous != "" {
		t.Errorf("cursors = %q / %q", page.Next, page.Previous)
	}
	if len(page.Records) != 1 {
		t.Fatalf("records = %d", len(page.Records))
	}
	if got := b.PKs(); len(got) != 1 || got[0] != 99 {
		t.Errorf("pks = %v", got)
	}
	if b.State() != FetchLoaded {
		t.Errorf("state = %s", b.State())
	}
}

func TestBinderErrorKeepsLastGoodPage(t *testing.T) {
	var fail atomic.Bool
	b, _ := testBinder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "boom"}`))
			return
		}
		_, _ = w.Write([]byte(`{"count": 1, "next": null, "previous": null, "results": [{"pk": 1}]}`))
	}))

	if _, err := b.Fetch(context.Background(), url.Values{}); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}

	fail.Store(true)
	if _, err := b.Fetch(context.Background(), url.Values{}); err == nil {
		t.Fatal("expected error from failing fetch")
	}

	if b.State() != FetchErrored {
		t.Errorf("state = %s", b.State())
	}
	if b.Err() == nil {
		t.Error("Err() should report the failure")
	}
	if page := b.Page(); page == nil || len(page.Records) != 1 {
		t.Error("last good page must remain available under the error")
	}

	// Recovery only via a new explicit fetch.
	fail.Store(false)
	if _, err := b.Fetch(context.Background(), url.Values{}); err != nil {
		t.Fatalf("recovery fetch failed: %v", err)
	}
	if b.State() != FetchLoaded || b.Err() != nil {
		t.Errorf("state after recovery = %s, err = %v", b.State(), b.Err())
	}
}

func TestBinderTransportErrorTransitionsToErrored(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	cl := client.New(srv.URL, time.Second, 0, zerolog.Nop())
	b := NewBinder("/api/stock_items", "pk", cl, zerolog.Nop())

	if _, err := b.Fetch(context.Background(), url.Values{}); err == nil {
		t.Fatal("expected transport error")
	}
	if b.State() != FetchErrored {
		t.Errorf("state = %s", b.State())
	}
}

// Fetch A is issued first but resolves after fetch B: the displayed page
// must reflect B, and A's late result must be dropped.
func TestBinderLastRequestWins(t *testing.T) {
	var calls atomic.Int64
	firstArrived := make(chan struct{})
	releaseFirst := make(chan struct{})

	b, _ := testBinder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(firstArrived)
			<-releaseFirst
			_, _ = w.Write([]byte(`{"count": 1, "next": null, "previous": null, "results": [{"pk": 1, "origin": "stale"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"count": 1, "next": null, "previous": null, "results": [{"pk": 2, "origin": "fresh"}]}`))
	}))

	aDone := make(chan struct{})
	var aPage any
	var aErr error
	go func() {
		defer close(aDone)
		page, err := b.Fetch(context.Background(), url.Values{})
		if page != nil {
			aPage = page
		}
		aErr = err
	}()

	<-firstArrived

	pageB, err := b.Fetch(context.Background(), url.Values{})
	if err != nil {
		t.Fatalf("fetch B failed: %v", err)
	}
	if pageB == nil || pageB.Records[0]["origin"] != "fresh" {
		t.Fatalf("fetch B page = %+v", pageB)
	}

	close(releaseFirst)
	<-aDone

	if aErr != nil {
		t.Errorf("stale fetch reported an error: %v", aErr)
	}
	if aPage != nil {
		t.Errorf("stale fetch returned a page: %+v", aPage)
	}

	page := b.Page()
	if page == nil || page.Records[0]["origin"] != "fresh" {
		t.Errorf("displayed page = %+v, want fetch B's result", page)
	}
	if b.State() != FetchLoaded {
		t.Errorf("state = %s", b.State())
	}
}

func TestBinderLocalPatchAndRemove(t *testing.T) {
	b, _ := testBinder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count": 2, "next": null, "previous": null,
			"results": [{"pk": 1, "status": "10"}, {"pk": 2, "status": "10"}]}`))
	}))

	if _, err := b.Fetch(context.Background(), url.Values{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if !b.PatchLocal(1, map[string]any{"status": "60"}) {
		t.Error("PatchLocal missed an on-page record")
	}
	if rec, _ := b.Record(1); rec["status"] != "60" {
		t.Errorf("patched record = %+v", rec)
	}

	if !b.RemoveLocal(2) {
		t.Error("RemoveLocal missed an on-page record")
	}
	page := b.Page()
	if len(page.Records) != 1 || page.Count != 1 {
		t.Errorf("page after removal = %+v", page)
	}
	if b.RemoveLocal(2) {
		t.Error("RemoveLocal found an already removed record")
	}
}
