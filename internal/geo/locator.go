// Package geo resolves the device's current position.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrTimeout          = errors.New("location request timed out")
)

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locator performs a one-shot, low-accuracy position lookup.
type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

// StaticLocator reports a configured position. A nil position behaves like a refused prompt.
type StaticLocator struct {
	Position *Position
}

func (l StaticLocator) Locate(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, timeoutOr(err)
	}
	if l.Position == nil {
		return Position{}, ErrPermissionDenied
	}
	return *l.Position, nil
}

// IPLocator asks an IP geolocation endpoint for a city-level position.
// The endpoint must answer with {"latitude": .., "longitude": ..}.
type IPLocator struct {
	URL    string
	Client *http.Client
}

func NewIPLocator(url string) *IPLocator {
	return &IPLocator{URL: url, Client: &http.Client{}}
}

func (l *IPLocator) Locate(ctx context.Context) (Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return Position{}, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return Position{}, timeoutOr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return Position{}, ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		return Position{}, fmt.Errorf("location lookup failed with status %d", resp.StatusCode)
	}

	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Position{}, fmt.Errorf("decode location lookup: %w", err)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return Position{}, errors.New("location lookup returned no coordinates")
	}
	return Position{Latitude: *body.Latitude, Longitude: *body.Longitude}, nil
}

// WithTimeout bounds a Locator; an expired deadline surfaces as ErrTimeout.
func WithTimeout(l Locator, timeout time.Duration) Locator {
	return timeoutLocator{next: l, timeout: timeout}
}

type timeoutLocator struct {
	next    Locator
	timeout time.Duration
}

func (l timeoutLocator) Locate(ctx context.Context) (Position, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	pos, err := l.next.Locate(ctx)
	if err != nil {
		return Position{}, timeoutOr(err)
	}
	return pos, nil
}

func timeoutOr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
