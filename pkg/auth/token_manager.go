/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package auth manages the OAuth2 client-credentials token used to
// authenticate every outbound call to Aruba Central.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aruba-noc/mcp-gateway/pkg/config"
	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
)

// Token is an access token and the instant it stops being valid.
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// HTTPDoer is the seam tests substitute to avoid a real HTTP round trip.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenManager exposes EnsureFresh and ForceRefresh, both safe for
// concurrent use. It is the sole owner of the mutable (access_token,
// token_expiry) pair; every read and write of that pair is serialized
// through one mutex.
type TokenManager struct {
	creds    config.Credentials
	tokenURL string
	buffer   time.Duration
	http     HTTPDoer
	logger   logger.Logger

	mu    sync.Mutex
	token Token
}

// NewTokenManager builds a TokenManager. doer is typically http.DefaultClient
// or a *http.Client with a bounded timeout.
func NewTokenManager(creds config.Credentials, tokenURL string, refreshBuffer time.Duration, doer HTTPDoer, log logger.Logger) *TokenManager {
	return &TokenManager{
		creds:    creds,
		tokenURL: tokenURL,
		buffer:   refreshBuffer,
		http:     doer,
		logger:   log,
	}
}

// EnsureFresh returns a valid access token, refreshing it if it is absent or
// within refreshBuffer of expiry. It uses a token-value comparison (not a
// boolean "refreshing" flag) to detect that a concurrent caller already
// refreshed: a caller that snapshots the token before acquiring the lock and
// finds it changed after acquiring the lock simply returns the new value
// instead of refreshing again.
func (m *TokenManager) EnsureFresh(ctx context.Context) (string, error) {
	before := m.snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.AccessToken != before.AccessToken {
		// Someone refreshed between our snapshot and acquiring the lock.
		return m.token.AccessToken, nil
	}

	if m.token.AccessToken != "" && time.Now().Before(m.token.Expiry.Add(-m.buffer)) {
		return m.token.AccessToken, nil
	}

	return m.refreshLocked(ctx)
}

// ForceRefresh unconditionally exchanges for a new token, skipping the
// expiry check. Used exactly once per HTTP attempt that sees a 401.
func (m *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshLocked(ctx)
}

func (m *TokenManager) snapshot() Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.token
}

// refreshLocked must be called with m.mu held. On failure, m.token is left
// untouched — a failed exchange never partially mutates the stored token.
func (m *TokenManager) refreshLocked(ctx context.Context) (string, error) {
	tok, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}

	m.token = tok
	m.logger.Info().Time("expiry", tok.Expiry).Msg("oauth2 token refreshed")

	return tok.AccessToken, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (m *TokenManager) exchange(ctx context.Context) (Token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {m.creds.ClientID},
		"client_secret": {m.creds.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, gatewayerr.Auth("failed to build oauth2 token request", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return Token{}, gatewayerr.Auth("oauth2 token exchange failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Token{}, gatewayerr.Auth(fmt.Sprintf("oauth2 token endpoint returned %d", resp.StatusCode), nil)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Token{}, gatewayerr.Auth("failed to decode oauth2 token response", err)
	}

	if body.AccessToken == "" {
		return Token{}, gatewayerr.Auth("oauth2 response missing access_token", nil)
	}

	return Token{
		AccessToken: body.AccessToken,
		Expiry:      time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

// Snapshot returns the current token and expiry for the health probe. It
// never triggers a refresh.
func (m *TokenManager) Snapshot() Token {
	return m.snapshot()
}
