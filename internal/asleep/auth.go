package asleep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// refreshMargin is how long before expiry a token is refreshed.
const refreshMargin = 5 * time.Minute

// Credentials identify a user and authorize requests.
type Credentials struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // zero means unknown; never refreshed proactively
}

// NeedsRefresh reports whether the token expires within refreshMargin of now.
func (c Credentials) NeedsRefresh(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt.Add(-refreshMargin))
}

// PersistFunc stores refreshed credentials.
type PersistFunc func(Credentials) error

// Source fetches average-stats payloads for one user, refreshing the access
// token when it is about to expire. It is safe for concurrent use.
type Source struct {
	client   *Client
	persist  PersistFunc
	now      func() time.Time
	location *time.Location

	mu    sync.Mutex
	creds Credentials
}

// NewSource creates a Source. Dates are computed in loc; persist may be nil.
func NewSource(client *Client, creds Credentials, loc *time.Location, persist PersistFunc) *Source {
	if loc == nil {
		loc = time.Local
	}
	return &Source{
		client:   client,
		persist:  persist,
		now:      time.Now,
		location: loc,
		creds:    creds,
	}
}

// Credentials returns the current credentials.
func (s *Source) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// EnsureToken returns a usable access token, refreshing it first when it
// is close to expiry. A failed refresh is logged and the existing token
// is returned; the API will reject it if it really has expired.
func (s *Source) EnsureToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds.AccessToken == "" {
		return "", ErrNoCredentials
	}
	if !s.creds.NeedsRefresh(s.now()) {
		return s.creds.AccessToken, nil
	}
	if s.creds.RefreshToken == "" {
		slog.Warn("access token near expiry and no refresh token configured")
		return s.creds.AccessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Warn("token refresh failed, using existing token", "error", err)
	}
	return s.creds.AccessToken, nil
}

func (s *Source) refreshLocked(ctx context.Context) error {
	slog.Info("refreshing access token")
	tokens, err := s.client.RefreshToken(ctx, s.creds.RefreshToken, s.now())
	if err != nil {
		return err
	}

	s.creds.AccessToken = tokens.AccessToken
	s.creds.RefreshToken = tokens.RefreshToken
	s.creds.ExpiresAt = tokens.ExpiresAt
	slog.Info("access token refreshed", "expires_at", tokens.ExpiresAt)

	if s.persist != nil {
		if err := s.persist(s.creds); err != nil {
			slog.Warn("saving refreshed tokens", "error", err)
		}
	}
	return nil
}

// Fetch returns the raw payload covering the last days calendar dates.
// An unauthorized response triggers one refresh and retry.
func (s *Source) Fetch(ctx context.Context, days int) ([]byte, error) {
	token, err := s.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	userID := s.Credentials().UserID
	r := NewDateRange(s.now().In(s.location), days)
	slog.Debug("requesting average stats", "start", r.StartDate(), "end", r.EndDate())

	body, err := s.client.FetchAverageStats(ctx, token, userID, r)
	if !errors.Is(err, ErrUnauthorized) {
		return body, err
	}

	s.mu.Lock()
	var refreshErr error
	if s.creds.RefreshToken != "" {
		refreshErr = s.refreshLocked(ctx)
	} else {
		refreshErr = err
	}
	token = s.creds.AccessToken
	s.mu.Unlock()
	if refreshErr != nil {
		return nil, err
	}

	return s.client.FetchAverageStats(ctx, token, userID, r)
}
