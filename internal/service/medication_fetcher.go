package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gabfadel/gab-health/config"
	"github.com/gabfadel/gab-health/internal/infrastructure/cache"
	"github.com/gabfadel/gab-health/pkg/apperror"
	"github.com/gabfadel/gab-health/pkg/metrics"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var ErrQueryRequired = apperror.Validation("Query parameter is required")

const (
	fetchErrorMessage = "Error fetching data from external API"

	// breakerFailureThreshold consecutive upstream failures open the breaker
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
	maxResponseBytes        = 10 << 20
)

// MedicationSource tells where a lookup result came from
type MedicationSource string

const (
	SourceCache    MedicationSource = "cache"
	SourceExternal MedicationSource = "external"
)

// MedicationPayload is the cached unit: the upstream body as received plus
// its normalized extraction.
type MedicationPayload struct {
	RawData       map[string]interface{} `json:"raw_data"`
	ExtractedInfo ExtractedInfo          `json:"extracted_info"`
}

type FetchResult struct {
	Payload *MedicationPayload
	Source  MedicationSource
}

// MedicationFetcher looks up drug event data by medication name, serving
// repeated queries from cache.
type MedicationFetcher interface {
	Fetch(ctx context.Context, query string) (*FetchResult, error)
}

// upstreamStatusError is a non-2xx answer from the drug API
type upstreamStatusError struct {
	StatusCode int
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

type medicationFetcher struct {
	log       *logrus.Logger
	store     cache.Store
	metrics   *metrics.Metrics
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	group     singleflight.Group
	baseURL   string
	apiKey    string
	limit     int
	namespace string
	ttl       time.Duration
}

func NewMedicationFetcher(
	log *logrus.Logger,
	store cache.Store,
	m *metrics.Metrics,
	apiCfg config.OpenFDAConfig,
	cacheCfg config.CacheConfig,
) MedicationFetcher {
	timeout := apiCfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := apiCfg.ResultLimit
	if limit <= 0 {
		limit = 5
	}
	ttl := cacheCfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	namespace := cacheCfg.Namespace
	if namespace == "" {
		namespace = "openfda"
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if apiCfg.RateLimit > 0 {
		burst := int(apiCfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(apiCfg.RateLimit), burst)
	}

	f := &medicationFetcher{
		log:       log,
		store:     store,
		metrics:   m,
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
		baseURL:   apiCfg.BaseURL,
		apiKey:    apiCfg.APIKey,
		limit:     limit,
		namespace: namespace,
		ttl:       ttl,
	}

	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "openfda",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		// A 4xx is the API answering (404 means no match), not an outage
		IsSuccessful: func(err error) bool {
			var statusErr *upstreamStatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("Circuit breaker state changed")
		},
	})

	return f
}

// CacheKey returns the cache key for a query
func (f *medicationFetcher) CacheKey(query string) string {
	return f.namespace + "_" + query
}

func (f *medicationFetcher) Fetch(ctx context.Context, query string) (*FetchResult, error) {
	if query == "" {
		return nil, ErrQueryRequired
	}

	key := f.CacheKey(query)
	if payload, ok := f.readCache(ctx, key); ok {
		f.metrics.MedicationFetches.WithLabelValues(string(SourceCache)).Inc()
		return &FetchResult{Payload: payload, Source: SourceCache}, nil
	}

	// Concurrent misses on the same key share one upstream call. The shared
	// call is detached from any single caller's cancellation and is bounded by
	// the client timeout instead.
	ch := f.group.DoChan(key, func() (interface{}, error) {
		sharedCtx := context.WithoutCancel(ctx)
		// A flight that started right after the previous one stored the
		// entry finds it here.
		if payload, ok := f.readCache(sharedCtx, key); ok {
			return &FetchResult{Payload: payload, Source: SourceCache}, nil
		}
		payload, err := f.fetchAndStore(sharedCtx, query, key)
		if err != nil {
			return nil, err
		}
		return &FetchResult{Payload: payload, Source: SourceExternal}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			f.metrics.MedicationFetches.WithLabelValues("error").Inc()
			return nil, res.Err
		}
		result := res.Val.(*FetchResult)
		f.metrics.MedicationFetches.WithLabelValues(string(result.Source)).Inc()
		return result, nil
	}
}

func (f *medicationFetcher) readCache(ctx context.Context, key string) (*MedicationPayload, bool) {
	data, found, err := f.store.Get(ctx, key)
	if err != nil {
		f.log.Warnf("Failed to read medication cache for %s: %+v", key, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var payload MedicationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		f.log.Warnf("Failed to decode cached medication data for %s: %+v", key, err)
		return nil, false
	}
	return &payload, true
}

func (f *medicationFetcher) fetchAndStore(ctx context.Context, query, key string) (*MedicationPayload, error) {
	body, err := f.fetchExternal(ctx, query)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperror.ExternalService(http.StatusInternalServerError, fetchErrorMessage, fmt.Errorf("invalid response body: %w", err))
	}
	info, err := ExtractMedicationInfo(body)
	if err != nil {
		return nil, apperror.ExternalService(http.StatusInternalServerError, fetchErrorMessage, fmt.Errorf("unexpected response shape: %w", err))
	}

	payload := &MedicationPayload{RawData: raw, ExtractedInfo: info}

	encoded, err := json.Marshal(payload)
	if err != nil {
		f.log.Warnf("Failed to encode medication data for %s: %+v", key, err)
		return payload, nil
	}
	if err := f.store.Set(ctx, key, encoded, f.ttl); err != nil {
		f.log.Warnf("Failed to write medication cache for %s: %+v", key, err)
	}

	return payload, nil
}

func (f *medicationFetcher) requestURL(query string) string {
	u := fmt.Sprintf("%s?search=patient.drug.medicinalproduct:%s&limit=%d", f.baseURL, url.QueryEscape(query), f.limit)
	if f.apiKey != "" {
		u += "&api_key=" + url.QueryEscape(f.apiKey)
	}
	return u
}

func (f *medicationFetcher) fetchExternal(ctx context.Context, query string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, apperror.ExternalService(http.StatusServiceUnavailable, fetchErrorMessage, err)
	}

	start := time.Now()
	defer func() {
		f.metrics.MedicationFetchLatency.Observe(time.Since(start).Seconds())
	}()

	result, err := f.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.requestURL(query), nil)
		if err != nil {
			return nil, withoutURL(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, withoutURL(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
			return nil, &upstreamStatusError{StatusCode: resp.StatusCode}
		}

		return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	})
	if err != nil {
		return nil, toFetchError(err)
	}

	return result.([]byte), nil
}

// withoutURL drops the request URL from transport errors. The URL carries
// the api_key and the error text reaches clients and logs.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request failed: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func toFetchError(err error) error {
	var statusErr *upstreamStatusError
	switch {
	case errors.As(err, &statusErr):
		return apperror.ExternalService(statusErr.StatusCode, fetchErrorMessage, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperror.ExternalService(http.StatusServiceUnavailable, fetchErrorMessage, err)
	default:
		return apperror.ExternalService(http.StatusInternalServerError, fetchErrorMessage, err)
	}
}
