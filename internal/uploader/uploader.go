package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/Montcharles/germitrack/internal/config"
	"github.com/Montcharles/germitrack/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second
)

// Uploader buffers treatment results and posts them to a germitrack server.
// Ship() is non-blocking; when the buffer is full the oldest result is
// evicted. Run() must be called in a goroutine to drain the buffer and retry
// failed sends.
type Uploader struct {
	cfg    config.PushConfig
	buf    chan *types.TreatmentResult
	client *http.Client
}

// New creates an Uploader using the given push config.
func New(cfg config.PushConfig) *Uploader {
	size := cfg.BufferSize
	if size <= 0 {
		size = config.DefaultPushBufferSize
	}
	return &Uploader{
		cfg:    cfg,
		buf:    make(chan *types.TreatmentResult, size),
		client: &http.Client{},
	}
}

// Ship enqueues one result for delivery.
// If the buffer is full the oldest entry is evicted to make room.
func (u *Uploader) Ship(res *types.TreatmentResult) {
	select {
	case u.buf <- res:
	default:
		// Buffer full: drop the oldest result, keep the newest.
		select {
		case <-u.buf:
			slog.Warn("uploader: buffer full, evicted oldest result",
				"treatment", res.Treatment, "buffer_cap", cap(u.buf))
		default:
		}
		u.buf <- res
	}
}

// Run drains the buffer, posting results to the server's ingest endpoint.
// A failed send is retried in place with exponential backoff, so results
// reach the server in the order they were shipped. Run blocks until ctx is
// cancelled.
func (u *Uploader) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-u.buf:
			for {
				err := u.send(ctx, res)
				if err == nil {
					slog.Debug("uploader: result delivered", "treatment", res.Treatment)
					bo.reset()
					break
				}
				if isPermanentError(err) {
					slog.Error("uploader: permanent send error, discarding result",
						"treatment", res.Treatment, "err", err)
					bo.reset()
					break
				}

				wait := bo.next()
				slog.Warn("uploader: send failed, will retry",
					"endpoint", u.cfg.Endpoint,
					"treatment", res.Treatment,
					"err", err,
					"retry_in", wait)
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
			}
		}
	}
}

// Flush synchronously delivers everything left in the buffer. It is called
// once at shutdown, after Run has stopped. Each result is attempted once;
// the first transient failure aborts the flush so shutdown is not held up
// by an unreachable server.
func (u *Uploader) Flush(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-u.buf:
			if err := u.send(ctx, res); err != nil {
				if isPermanentError(err) {
					slog.Error("uploader: permanent send error, discarding result",
						"treatment", res.Treatment, "err", err)
					continue
				}
				return fmt.Errorf("flush %q: %w", res.Treatment, err)
			}
		default:
			return nil
		}
	}
}

// send posts one result to {endpoint}/api/v1/ingest.
func (u *Uploader) send(ctx context.Context, res *types.TreatmentResult) error {
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	url := strings.TrimRight(u.cfg.Endpoint, "/") + "/api/v1/ingest"
	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Inject API key header if configured.
	if u.cfg.Auth.Mode == "apikey" && u.cfg.Auth.KeyEnv != "" {
		req.Header.Set(u.cfg.Auth.EffectiveHeader(), u.cfg.Auth.Key())
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &httpError{status: resp.StatusCode}
	}
	return nil
}

// httpError carries the response status so errors can be classified as
// permanent or transient.
type httpError struct {
	status int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("server returned HTTP %d", e.status)
}

// isPermanentError returns true for responses that indicate the result
// itself was rejected and a retry cannot succeed: any 4xx except 429.
func isPermanentError(err error) bool {
	var he *httpError
	if !errors.As(err, &he) {
		return false
	}
	return he.status >= 400 && he.status < 500 && he.status != http.StatusTooManyRequests
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	// Advance for next call.
	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
