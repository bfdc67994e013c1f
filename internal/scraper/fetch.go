package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"romvault/pkg/logging"
	"romvault/pkg/models"
)

const userAgent = "romvault-sync/1.0"

// maxBodyBytes caps a single response body.
const maxBodyBytes = 32 << 20

// ErrAllPlatformsFailed is returned by multi-platform sources when not a
// single platform could be fetched.
var ErrAllPlatformsFailed = errors.New("all platforms failed")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Source     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: GET %s: status %d: %s", e.Source, e.URL, e.StatusCode, e.Body)
}

// Throttle spaces outbound requests at least delay apart.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a throttle that lets the first request through and
// then one request per delay. delay <= 0 disables throttling.
func NewThrottle(delay time.Duration) *Throttle {
	if delay <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next request may go out or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Fetcher performs throttled GET requests. Each request carries the client's
// own timeout; a timeout only fails that request.
type Fetcher struct {
	Client   *http.Client
	Throttle *Throttle
}

// NewFetcher creates a Fetcher with a per-request timeout and inter-request delay.
func NewFetcher(timeout, delay time.Duration) *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: timeout},
		Throttle: NewThrottle(delay),
	}
}

// Get returns the body of a 2xx response.
func (f *Fetcher) Get(ctx context.Context, source, url string) ([]byte, error) {
	if err := f.Throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: throttle: %w", source, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", source, err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w", source, err)
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).Debug().
		Str("source", source).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("fetched")

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", source, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Source: source, URL: url, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// GetJSON decodes a 2xx JSON response into v.
func (f *Fetcher) GetJSON(ctx context.Context, source, url string, v any) error {
	body, err := f.Get(ctx, source, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: decode: %w", source, err)
	}
	return nil
}

type platformFetch func(ctx context.Context, system, target string) ([]models.Game, error)

// collectPlatforms fetches every platform in system-tag order. A failing
// platform is logged and skipped; the call fails only if every platform
// failed or ctx was cancelled.
func collectPlatforms(ctx context.Context, logger zerolog.Logger, platforms map[string]string, fetch platformFetch) ([]models.Game, error) {
	if len(platforms) == 0 {
		return nil, errors.New("no platforms configured")
	}

	systems := make([]string, 0, len(platforms))
	for system := range platforms {
		systems = append(systems, system)
	}
	sort.Strings(systems)

	var (
		all  []models.Game
		errs []error
	)
	for _, system := range systems {
		games, err := fetch(ctx, system, platforms[system])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn().Err(err).Str("platform", system).Msg("platform fetch failed, continuing")
			errs = append(errs, fmt.Errorf("%s: %w", system, err))
			continue
		}
		logger.Debug().Str("platform", system).Int("games", len(games)).Msg("platform fetched")
		all = append(all, games...)
	}

	if len(errs) == len(systems) {
		return nil, errors.Join(append([]error{ErrAllPlatformsFailed}, errs...)...)
	}
	return all, nil
}
