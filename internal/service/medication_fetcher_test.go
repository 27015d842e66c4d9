package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabfadel/gab-health/config"
	"github.com/gabfadel/gab-health/internal/infrastructure/cache"
	"github.com/gabfadel/gab-health/pkg/apperror"
	"github.com/gabfadel/gab-health/pkg/metrics"
	"github.com/gabfadel/gab-health/pkg/response"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeDrugAPI struct {
	server *httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	delay  atomic.Int64
	body   string

	mu        sync.Mutex
	lastQuery string
}

func newFakeDrugAPI(t *testing.T, body string) *fakeDrugAPI {
	api := &fakeDrugAPI{body: body}
	api.status.Store(http.StatusOK)
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.hits.Add(1)
		api.mu.Lock()
		api.lastQuery = r.URL.RawQuery
		api.mu.Unlock()
		if d := time.Duration(api.delay.Load()); d > 0 {
			time.Sleep(d)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(api.status.Load()))
		io.WriteString(w, api.body)
	}))
	t.Cleanup(api.server.Close)
	return api
}

// countingStore wraps a store and records writes
type countingStore struct {
	cache.Store
	sets   atomic.Int32
	getErr error
	setErr error

	mu      sync.Mutex
	lastTTL time.Duration
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.Store.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.sets.Add(1)
	s.mu.Lock()
	s.lastTTL = ttl
	s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	return s.Store.Set(ctx, key, value, ttl)
}

func newTestFetcher(baseURL string, store cache.Store) *medicationFetcher {
	return NewMedicationFetcher(
		newTestLogger(),
		store,
		metrics.NewNop(),
		config.OpenFDAConfig{BaseURL: baseURL, Timeout: 2 * time.Second, ResultLimit: 5},
		config.CacheConfig{Namespace: "openfda", TTL: time.Hour},
	).(*medicationFetcher)
}

func TestFetch_EmptyQuery(t *testing.T) {
	api := newFakeDrugAPI(t, aspirinEvents)
	fetcher := newTestFetcher(api.server.URL, cache.NewMemoryStore(time.Hour))

	_, err := fetcher.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryRequired)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, int32(0), api.hits.Load())
}

func TestFetch_MissThenHit(t *testing.T) {
	api := newFakeDrugAPI(t, aspirinEvents)
	store := &countingStore{Store: cache.NewMemoryStore(time.Hour)}
	fetcher := newTestFetcher(api.server.URL, store)
	ctx := context.Background()

	first, err := fetcher.Fetch(ctx, "aspirin")
	require.NoError(t, err)
	assert.Equal(t, SourceExternal, first.Source)
	assert.Equal(t, []string{"ASPIRIN", "BAYER ASPIRIN"}, first.Payload.ExtractedInfo.BrandNames)
	assert.Contains(t, first.Payload.RawData, "results")

	second, err := fetcher.Fetch(ctx, "aspirin")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Payload.ExtractedInfo, second.Payload.ExtractedInfo)
	assert.Equal(t, len(first.Payload.RawData["results"].([]interface{})), len(second.Payload.RawData["results"].([]interface{})))

	assert.Equal(t, int32(1), api.hits.Load())
	assert.Equal(t, int32(1), store.sets.Load())

	store.mu.Lock()
	assert.Equal(t, time.Hour, store.lastTTL)
	store.mu.Unlock()

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "search=patient.drug.medicinalproduct:aspirin&limit=5", api.lastQuery)
}

func TestFetch_ExpiredEntryCallsUpstreamAgain(t *testing.T) {
	api := newFakeDrugAPI(t, aspirinEvents)
	store := &countingStore{Store: cache.NewMemoryStore(time.Hour)}
	fetcher := NewMedicationFetcher(
		newTestLogger(),
		store,
		metrics.NewNop(),
		config.OpenFDAConfig{BaseURL: api.server.URL, Timeout: 2 * time.Second, ResultLimit: 5},
		config.CacheConfig{Namespace: "openfda", TTL: 50 * time.Millisecond},
	)
	ctx := context.Background()

	first, err := fetcher.Fetch(ctx, "aspirin")
	require.NoError(t, err)
	assert.Equal(t, SourceExternal, first.Source)

	cached, err := fetcher.Fetch(ctx, "aspirin")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, cached.Source)
	assert.Equal(t, int32(1), api.hits.Load())

	time.Sleep(100 * time.Millisecond)

	refreshed, err := fetcher.Fetch(ctx, "aspirin")
	require.NoError(t, err)
	assert.Equal(t, SourceExternal, refreshed.Source)
	assert.Equal(t, int32(2), api.hits.Load())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 50*time.Millisecond, store.lastTTL)
}

func TestFetch_CacheKeyUsesNamespace(t *testing.T) {
	api := newFakeDrugAPI(t, aspirinEvents)
	store := cache.NewMemoryStore(time.Hour)
	fetcher := newTestFetcher(api.server.URL, store)

	_, err := fetcher.Fetch(context.Background(), "ibuprofen")
	require.NoError(t, err)

	_, found, err := store.Get(context.Background(), "openfda_ibuprofen")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFetch_UpstreamErrorIsNotCached(t *testing.T) {
	api := newFakeDrugAPI(t, `{"error": {"code": "NOT_FOUND"}}`)
	api.status.Store(http.StatusNotFound)
	store := &countingStore{Store: cache.NewMemoryStore(time.Hour)}
	fetcher := newTestFetcher(api.server.URL, store)

	_, err := fetcher.Fetch(context.Background(), "unknownium")
	require.Error(t, err)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindExternalService, appErr.Kind)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus())
	assert.Contains(t, appErr.Error(), "Error fetching data from external API")
	assert.Equal(t, int32(0), store.sets.Load())

	_, err = fetcher.Fetch(context.Background(), "unknownium")
	require.Error(t, err)
	assert.Equal(t, int32(2), api.hits.Load())
}

func TestFetch_TransportFailureReports500(t *testing.T) {
	api := newFakeDrugAPI(t, aspirinEvents)
	closedURL := api.server.URL
	api.server.Close()

	fetcher := newTestFetcher(closedURL, cache.NewMemoryStore(time.Hour))
	_, err := fetcher.Fetch(context.Background(), "aspirin")
	require.Error(t, err)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus())
}

func TestFetch_TransportFailureHidesAPIKey(t *testing.T) {
	api := newFakeDrugAPI(t, aspirinEvents)
	closedURL := api.server.URL
	api.server.Close()

	fetcher := NewMedicationFetcher(
		newTestLogger(),
		cache.NewMemoryStore(time.Hour),
		metrics.NewNop(),
		config.OpenFDAConfig{BaseURL: closedURL, APIKey: "secret-key", Timeout: 2 * time.Second},
		config.CacheConfig{},
	)
	_, err := fetcher.Fetch(context.Background(), "aspirin")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.NotContains(t, err.Error(), "api_key")
	assert.Contains(t, err.Error(), "Error fetching data from external API")

	rec := httptest.NewRecorder()
	require.True(t, response.FromError(rec, err, "unexpected"))
	assert.NotContains(t, rec.Body.String(), "secret-key")
}

func TestFetch_CacheFailuresDoNotFailFetch(t *testing.T) {
	api := newFakeDrugAPI(t, aspirinEvents)
	store := &countingStore{
		Store:  cache.NewMemoryStore(time.Hour),
		getErr: errors.New("connection refused"),
		setErr: errors.New("connection refused"),
	}
	fetcher := newTestFetcher(api.server.URL, store)

	result, err := fetcher.Fetch(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.Equal(t, SourceExternal, result.Source)
	assert.Equal(t, int32(1), store.sets.Load())
}

func TestFetch_ConcurrentMissesShareOneCall(t *testing.T) {
	api := newFakeDrugAPI(t, aspirinEvents)
	api.delay.Store(int64(100 * time.Millisecond))
	fetcher := newTestFetcher(api.server.URL, cache.NewMemoryStore(time.Hour))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fetcher.Fetch(context.Background(), "aspirin")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.hits.Load())
}

func TestFetch_BreakerOpensAfterRepeatedServerErrors(t *testing.T) {
	api := newFakeDrugAPI(t, `{}`)
	api.status.Store(http.StatusBadGateway)
	fetcher := newTestFetcher(api.server.URL, cache.NewMemoryStore(time.Hour))
	ctx := context.Background()

	for i := 0; i < breakerFailureThreshold; i++ {
		_, err := fetcher.Fetch(ctx, "aspirin")
		require.Error(t, err)
	}

	_, err := fetcher.Fetch(ctx, "aspirin")
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus())
	assert.Equal(t, int32(breakerFailureThreshold), api.hits.Load())
}

func TestFetch_RequestURLIncludesAPIKey(t *testing.T) {
	fetcher := NewMedicationFetcher(
		newTestLogger(),
		cache.NewMemoryStore(time.Hour),
		metrics.NewNop(),
		config.OpenFDAConfig{BaseURL: "https://api.fda.gov/drug/event.json", APIKey: "k3y"},
		config.CacheConfig{},
	).(*medicationFetcher)

	assert.Equal(t,
		"https://api.fda.gov/drug/event.json?search=patient.drug.medicinalproduct:vitamin+c&limit=5&api_key=k3y",
		fetcher.requestURL("vitamin c"))
}
