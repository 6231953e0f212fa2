// Package zoom holds the deployment's OAuth session with the meeting
// provider and calls its REST API on the deployment's behalf.
package zoom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/config"
	"appointment-booking-api/internal/model"
)

// ScheduledMeeting is the provider's meeting type for a meeting with a
// fixed start time.
const ScheduledMeeting = 2

const maxBody = 1 << 20

// SessionStore persists the single provider session.
type SessionStore interface {
	SaveSession(ctx context.Context, s *model.OAuthSession) error
	LoadSession(ctx context.Context) (*model.OAuthSession, error)
}

type MeetingRequest struct {
	Topic     string `json:"topic"`
	Type      int    `json:"type"`
	StartTime string `json:"start_time,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Password  string `json:"password,omitempty"`
	Agenda    string `json:"agenda,omitempty"`
}

type Meeting struct {
	ID        int64  `json:"id"`
	Topic     string `json:"topic"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	JoinURL   string `json:"join_url"`
	StartURL  string `json:"start_url"`
	Password  string `json:"password"`
}

type Client struct {
	oauth    *oauth2.Config
	apiBase  string
	sessions SessionStore
	http     *http.Client
	log      *zap.Logger

	// serializes refreshes so a rotated refresh token is only spent once
	mu sync.Mutex
}

func New(cfg config.Provider, sessions SessionStore, log *zap.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiBase:  cfg.APIBaseURL,
		sessions: sessions,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// WithHTTPClient replaces the client used for token and API calls.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *Client) oauthCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// Exchange trades an authorization code for tokens and stores them as the
// deployment's session, replacing any previous one.
func (c *Client) Exchange(ctx context.Context, code string) (*model.OAuthSession, error) {
	tok, err := c.oauth.Exchange(c.oauthCtx(ctx), code)
	if err != nil {
		return nil, apperr.Provider(retrieveStatus(err), "Failed to exchange authorization code", err)
	}

	sess := sessionFromToken(tok)
	if err := c.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.log.Info("provider session stored", zap.Time("expiry", sess.Expiry))
	return sess, nil
}

// token returns a usable access token, refreshing the stored session first
// when it has expired.
func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.sessions.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized("No provider session, authorize first")
		}
		return nil, err
	}

	tok := &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       sess.Expiry,
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, apperr.Unauthorized("Provider session expired")
	}

	fresh, err := c.oauth.TokenSource(c.oauthCtx(ctx), tok).Token()
	if err != nil {
		return nil, apperr.Unauthorized("Provider session expired").Wrap(err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	if err := c.sessions.SaveSession(ctx, sessionFromToken(fresh)); err != nil {
		return nil, fmt.Errorf("save refreshed session: %w", err)
	}
	c.log.Info("provider session refreshed", zap.Time("expiry", fresh.Expiry))
	return fresh, nil
}

func (c *Client) CreateMeeting(ctx context.Context, req MeetingRequest) (*Meeting, error) {
	if req.Type == 0 {
		req.Type = ScheduledMeeting
	}
	m := &Meeting{}
	if err := c.do(ctx, http.MethodPost, "/users/me/meetings", req, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Profile returns the provider's user record for the session owner.
func (c *Client) Profile(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, rdr)
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Provider(http.StatusBadGateway, "Meeting provider unavailable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return apperr.Provider(http.StatusBadGateway, "Meeting provider unavailable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("provider call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return apperr.Provider(resp.StatusCode, providerMessage(resp.StatusCode, data),
			fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Provider(http.StatusBadGateway, "Unexpected provider response", err)
	}
	return nil
}

func providerMessage(status int, data []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return e.Message
	}
	return http.StatusText(status)
}

func retrieveStatus(err error) int {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode
	}
	return http.StatusBadGateway
}

func sessionFromToken(tok *oauth2.Token) *model.OAuthSession {
	return &model.OAuthSession{
		ID:           model.SessionID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry.UTC(),
	}
}
