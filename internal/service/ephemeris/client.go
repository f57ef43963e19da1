package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"AstroTransit/internal/domain/models"
	drepo "AstroTransit/internal/domain/repository"
	xhttp "AstroTransit/pkg/http"
	"AstroTransit/pkg/logger"
)

// ClientConfig configures the ephemeris microservice client.
type ClientConfig struct {
	BaseURL     string
	Timeout     time.Duration
	Retries     int
	Backoff     time.Duration
	HouseSystem string
}

// ClientOption configures HTTPResolver.
type ClientOption func(*HTTPResolver)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *xhttp.Client) ClientOption {
	return func(r *HTTPResolver) {
		r.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) ClientOption {
	return func(r *HTTPResolver) {
		r.log = log
	}
}

type positionResponse struct {
	Longitude  *float64 `json:"longitude"`
	Speed      *float64 `json:"speed,omitempty"`
	Retrograde *bool    `json:"retrograde,omitempty"`
}

type housesResponse struct {
	Cusps     []float64 `json:"cusps"`
	Ascendant float64   `json:"ascendant"`
	Midheaven float64   `json:"midheaven"`
}

// HTTPResolver resolves positions and houses through a Swiss Ephemeris
// microservice exposing /position and /houses.
type HTTPResolver struct {
	baseURL     string
	houseSystem string
	retries     int
	backoff     time.Duration
	client      *xhttp.Client
	log         *logger.Logger
}

// NewHTTPResolver builds a resolver from cfg.
func NewHTTPResolver(cfg ClientConfig, opts ...ClientOption) *HTTPResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	system := cfg.HouseSystem
	if system == "" {
		system = "placidus"
	}
	r := &HTTPResolver{
		baseURL:     cfg.BaseURL,
		houseSystem: system,
		retries:     cfg.Retries,
		backoff:     backoff,
		client:      xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("astrotransit-ephemeris")),
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches a body position. Every provider failure except context
// cancellation is reported as PositionUnavailable for (at, body).
func (r *HTTPResolver) Resolve(ctx context.Context, at time.Time, body string) (models.Position, error) {
	var resp positionResponse
	err := r.getWithRetry(ctx, "/position", map[string][]string{
		"body":     {body},
		"datetime": {at.UTC().Format(time.RFC3339)},
	}, &resp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Position{}, ctxErr
		}
		return models.Position{}, models.Unavailable(body, at, err)
	}
	if resp.Longitude == nil {
		return models.Position{}, models.Unavailable(body, at, errors.New("response missing longitude"))
	}

	pos := models.Position{Body: body, Longitude: models.NormalizeDegrees(*resp.Longitude)}
	switch {
	case resp.Speed != nil:
		pos.Speed = resp.Speed
		pos.Retrograde = models.RetrogradeFromSpeed(*resp.Speed)
	case resp.Retrograde != nil:
		pos.Retrograde = models.RetrogradeFromBool(*resp.Retrograde)
	default:
		pos.Retrograde = models.RetrogradeUnknown
	}
	return pos, nil
}

// Houses fetches cusps, ascendant and midheaven.
func (r *HTTPResolver) Houses(ctx context.Context, at time.Time, latitude, longitude float64) (models.Houses, error) {
	var resp housesResponse
	err := r.getWithRetry(ctx, "/houses", map[string][]string{
		"datetime": {at.UTC().Format(time.RFC3339)},
		"lat":      {strconv.FormatFloat(latitude, 'f', 6, 64)},
		"lon":      {strconv.FormatFloat(longitude, 'f', 6, 64)},
		"system":   {r.houseSystem},
	}, &resp)
	if err != nil {
		return models.Houses{}, fmt.Errorf("fetch houses: %w", err)
	}
	if len(resp.Cusps) != 12 {
		return models.Houses{}, fmt.Errorf("fetch houses: expected 12 cusps, got %d", len(resp.Cusps))
	}
	h := models.Houses{
		Ascendant: models.NormalizeDegrees(resp.Ascendant),
		Midheaven: models.NormalizeDegrees(resp.Midheaven),
	}
	for i, c := range resp.Cusps {
		h.Cusps[i] = models.NormalizeDegrees(c)
	}
	return h, nil
}

func (r *HTTPResolver) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if r.client == nil || r.baseURL == "" {
		return errors.New("ephemeris client not configured")
	}
	if err := r.client.GetJSON(ctx, strings.TrimSuffix(r.baseURL, "/")+path, url.Values(query), dest); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

// getWithRetry retries transient failures with linear backoff. Client errors
// (4xx other than 429) are final.
func (r *HTTPResolver) getWithRetry(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	attempts := r.retries + 1
	var err error
	for i := 1; i <= attempts; i++ {
		err = r.get(ctx, path, query, dest)
		if err == nil {
			return nil
		}
		if !retryable(err) || i == attempts {
			break
		}
		r.log.Debug("ephemeris request failed, retrying",
			logger.String("path", path),
			logger.Int("attempt", i),
			logger.Error(err),
		)
		select {
		case <-time.After(time.Duration(i) * r.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

var _ drepo.Ephemeris = (*HTTPResolver)(nil)
