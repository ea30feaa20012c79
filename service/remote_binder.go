package service

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tabworks/tabula/client"
	"github.com/tabworks/tabula/model"
	"github.com/tabworks/tabula/utils"
)

// FetchState tracks where one table instance is in its fetch cycle.
type FetchState int32

const (
	FetchIdle FetchState = iota
	FetchLoading
	FetchLoaded
	FetchErrored
)

func (s FetchState) String() string {
	switch s {
	case FetchIdle:
		return "idle"
	case FetchLoading:
		return "loading"
	case FetchLoaded:
		return "loaded"
	case FetchErrored:
		return "errored"
	}
	return "unknown"
}

// envelope is the pagination wrapper the list endpoint returns.
type envelope struct {
	Count    int64          `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []model.Record `json:"results"`
}

// Binder issues paginated fetches for one table instance and holds the
// resulting RecordPage. Concurrent fetches follow last-request-wins: each
// fetch takes a sequence number, and a response whose sequence is no longer
// the newest is discarded on arrival. A failed fetch keeps the last good
// page available underneath the error.
type Binder struct {
	endpoint string
	pkField  string
	client   *client.Client
	log      zerolog.Logger

	mu      sync.Mutex
	state   FetchState
	page    *model.RecordPage
	lastErr error
	seq     uint64
}

func NewBinder(endpoint, pkField string, cl *client.Client, log zerolog.Logger) *Binder {
	return &Binder{
		endpoint: endpoint,
		pkField:  pkField,
		client:   cl,
		log:      log,
		state:    FetchIdle,
	}
}

// Fetch issues one paginated request with the composed query. On success
// the held page is replaced and returned. A stale response (superseded by a
// newer fetch before it arrived) is discarded and reported as (nil, nil):
// the caller reads the authoritative page via Page. There is no automatic
// retry; a new Fetch is the only recovery path.
func (b *Binder) Fetch(ctx context.Context, query url.Values) (*model.RecordPage, error) {
	seq := b.begin()

	var env envelope
	err := b.client.GetJSON(ctx, b.endpoint, query, &env)

	return b.commit(seq, &env, err)
}

func (b *Binder) begin() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.state = FetchLoading
	return b.seq
}

func (b *Binder) commit(seq uint64, env *envelope, err error) (*model.RecordPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.seq {
		// A newer fetch was issued while this one was in flight. Its
		// result decides the page; this one is dropped silently.
		b.log.Debug().
			Str("endpoint", b.endpoint).
			Uint64("seq", seq).
			Uint64("latest", b.seq).
			Msg("discarding stale fetch result")
		return nil, nil
	}

	if err != nil {
		b.state = FetchErrored
		b.lastErr = err
		return nil, err
	}

	page := &model.RecordPage{
		Count:   env.Count,
		Records: env.Results,
	}
	if env.Next != nil {
		page.Next = *env.Next
	}
	if env.Previous != nil {
		page.Previous = *env.Previous
	}

	b.page = page
	b.state = FetchLoaded
	b.lastErr = nil
	return page, nil
}

// State returns the current fetch state.
func (b *Binder) State() FetchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the error of the most recent failed fetch, nil after a
// success.
func (b *Binder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Page returns the last successfully fetched page, nil before the first
// success. Callers must treat it as read-only.
func (b *Binder) Page() *model.RecordPage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

// PKs lists the primary keys present on the held page.
func (b *Binder) PKs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil {
		return nil
	}
	ids := make([]int64, 0, len(b.page.Records))
	for _, rec := range b.page.Records {
		ids = append(ids, utils.ExtractInt64(rec[b.pkField]))
	}
	return ids
}

// Record returns the held record with the given primary key.
func (b *Binder) Record(id int64) (model.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil {
		return nil, false
	}
	for _, rec := range b.page.Records {
		if utils.ExtractInt64(rec[b.pkField]) == id {
			return rec, true
		}
	}
	return nil, false
}

// PatchLocal merges confirmed field changes into the held record, avoiding
// a full re-fetch after a successful update. Reports whether the record was
// present.
func (b *Binder) PatchLocal(id int64, fields map[string]any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil {
		return false
	}
	for _, rec := range b.page.Records {
		if utils.ExtractInt64(rec[b.pkField]) == id {
			for key, value := range fields {
				rec[key] = value
			}
			return true
		}
	}
	return false
}

// RemoveLocal drops a deleted record from the held page and decrements the
// total count. Reports whether the record was present.
func (b *Binder) RemoveLocal(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil {
		return false
	}
	for i, rec := range b.page.Records {
		if utils.ExtractInt64(rec[b.pkField]) == id {
			b.page.Records = append(b.page.Records[:i], b.page.Records[i+1:]...)
			if b.page.Count > 0 {
				b.page.Count--
			}
			return true
		}
	}
	return false
}
