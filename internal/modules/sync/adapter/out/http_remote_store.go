package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"komekome/internal/modules/sync/domain"
	syncout "komekome/internal/modules/sync/port/out"
	apperrors "komekome/internal/platform/errors"
	"komekome/internal/platform/logging"
)

// HTTPRemoteStore talks to the remote key-value API: GET/PUT per key plus a
// prefix listing. Every call is bounded by the client timeout and wrapped in
// a circuit breaker so a flapping remote cannot stall the app; local state
// never waits on these calls beyond reporting status.
type HTTPRemoteStore struct {
	baseURL string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPRemoteStore(baseURL, token string, timeout time.Duration) syncout.RemoteKV {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "remote-kv",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// Only connectivity-class failures count against the breaker;
			// absent keys and auth rejections are definitive answers.
			return err == nil || !errors.Is(err, domain.ErrRemoteUnavailable)
		},
	})
	return &HTTPRemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		breaker: cb,
	}
}

func (s *HTTPRemoteStore) keyURL(key string) string {
	return s.baseURL + "/api/kv/" + url.PathEscape(key)
}

func (s *HTTPRemoteStore) do(ctx context.Context, method, rawURL string, body io.Reader) ([]byte, error) {
	return s.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			payload, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("%w: read body: %v", domain.ErrRemoteUnavailable, err)
			}
			return payload, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, apperrors.ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d", domain.ErrRemoteUnavailable, resp.StatusCode)
		default:
			return nil, fmt.Errorf("%w: status %d", domain.ErrPermanentRejection, resp.StatusCode)
		}
	})
}

func (s *HTTPRemoteStore) classify(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit open", domain.ErrRemoteUnavailable)
	}
	return err
}

func (s *HTTPRemoteStore) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.do(ctx, http.MethodGet, s.keyURL(key), nil)
	if err != nil {
		return nil, s.classify(err)
	}
	return payload, nil
}

func (s *HTTPRemoteStore) Put(ctx context.Context, key string, payload []byte) error {
	_, err := s.do(ctx, http.MethodPut, s.keyURL(key), strings.NewReader(string(payload)))
	if err != nil {
		return s.classify(err)
	}
	return nil
}

func (s *HTTPRemoteStore) List(ctx context.Context, prefix string) ([]string, error) {
	listURL := s.baseURL + "/api/kv?prefix=" + url.QueryEscape(prefix)
	payload, err := s.do(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []string{}, nil
		}
		return nil, s.classify(err)
	}
	var body struct {
		Keys []string `json:"keys"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: list response: %v", domain.ErrMalformedPayload, err)
	}
	return body.Keys, nil
}
