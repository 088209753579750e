// Package auth implements the OAuth client-credentials token provider.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/jam/pkg/client"
	"github.com/Sternrassler/jam/pkg/credential"
	"github.com/Sternrassler/jam/pkg/logging"
	"github.com/Sternrassler/jam/pkg/metrics"
)

// DefaultTokenURL is JumpCloud's OAuth token endpoint.
const DefaultTokenURL = "https://admin-oauth.id.jumpcloud.com/oauth2/token"

// ErrMissingClientCredentials is returned when a token exchange is needed but
// no client id or secret is configured.
var ErrMissingClientCredentials = errors.New("client id and client secret are required")

var tokenExchanges = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
	Name: "jam_token_exchanges_total",
	Help: "Client-credentials token exchanges by result",
}, []string{"result"}) // "ok", "rejected", "error"

// Holder keeps the credential between calls. *credential.Session implements it.
type Holder interface {
	Credential() credential.Credential
	Update(credential.Credential)
}

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string

	// TokenURL defaults to DefaultTokenURL
	TokenURL string

	// Timeout for the exchange request
	Timeout time.Duration
}

// Provider hands out a valid bearer token, exchanging a new one when the held
// token is missing or expired.
type Provider struct {
	config     Config
	holder     Holder
	httpClient *http.Client
	now        func() time.Time
	logger     zerolog.Logger

	// mu serializes check-then-refresh.
	mu sync.Mutex
}

// NewProvider creates a token provider backed by holder.
func NewProvider(cfg Config, holder Holder) *Provider {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Provider{
		config:     cfg,
		holder:     holder,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		logger:     logging.NewLogger("auth"),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (p *Provider) SetHTTPClient(c *http.Client) {
	p.httpClient = c
}

// SetClock replaces the time source (for testing).
func (p *Provider) SetClock(now func() time.Time) {
	p.now = now
}

// Token returns the held credential without refreshing it.
func (p *Provider) Token() credential.Credential {
	return p.holder.Credential()
}

// AuthorizationHeader returns "Bearer <token>", refreshing the token first if
// none is held or it expires at or before now. A rejected exchange is
// returned as a *client.APIError of class auth and is not retried.
func (p *Provider) AuthorizationHeader(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred := p.holder.Credential()
	if cred.Expired(p.now()) {
		fresh, err := p.exchange(ctx)
		if err != nil {
			return "", err
		}
		p.holder.Update(fresh)
		cred = fresh
	} else {
		p.logger.Debug().Time("expires_at", cred.ExpiresAt).Msg("Reusing cached token")
	}

	return "Bearer " + cred.AccessToken, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type tokenError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func (p *Provider) exchange(ctx context.Context) (credential.Credential, error) {
	if p.config.ClientID == "" || p.config.ClientSecret == "" {
		return credential.Credential{}, ErrMissingClientCredentials
	}

	form := url.Values{
		"scope":      {"api"},
		"grant_type": {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return credential.Credential{}, fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(p.config.ClientID, p.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	endpoint := req.URL.Path
	requestedAt := p.now()

	resp, err := p.httpClient.Do(req)
	if err != nil {
		tokenExchanges.WithLabelValues("error").Inc()
		return credential.Credential{}, &client.APIError{
			Class:    client.ErrorClassNetwork,
			Method:   http.MethodPost,
			Endpoint: endpoint,
			Message:  "token exchange failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if !client.IsSuccess(resp.StatusCode) {
		tokenExchanges.WithLabelValues("rejected").Inc()
		message := http.StatusText(resp.StatusCode)
		var body tokenError
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&body); err == nil {
			switch {
			case body.Description != "":
				message = body.Description
			case body.Error != "":
				message = body.Error
			}
		}
		p.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("error_class", string(client.ErrorClassAuth)).
			Msg("Token exchange rejected")
		return credential.Credential{}, &client.APIError{
			StatusCode: resp.StatusCode,
			Class:      client.ErrorClassAuth,
			Method:     http.MethodPost,
			Endpoint:   endpoint,
			Message:    message,
		}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil || token.AccessToken == "" {
		tokenExchanges.WithLabelValues("error").Inc()
		if err == nil {
			err = errors.New("access_token missing")
		}
		return credential.Credential{}, &client.APIError{
			StatusCode: resp.StatusCode,
			Class:      client.ErrorClassDecode,
			Method:     http.MethodPost,
			Endpoint:   endpoint,
			Message:    "decode token response",
			Err:        err,
		}
	}

	tokenExchanges.WithLabelValues("ok").Inc()
	cred := credential.New(token.AccessToken, time.Duration(token.ExpiresIn)*time.Second, requestedAt)
	p.logger.Info().Time("expires_at", cred.ExpiresAt).Msg("Token exchanged")
	return cred, nil
}
