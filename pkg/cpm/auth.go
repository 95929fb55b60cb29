// Copyright 2026 cpmsync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cpm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"

	"github.com/cpmtools/cpmsync/pkg/config"
)

// Session cookies are revalidated at most this often rather than per call.
const sessionRecheckWindow = 5 * time.Minute

// 🔐 authState is the shared mutable credential cache. All access goes
// through ensureAuthenticated so concurrent calls never issue redundant
// logins (singleflight collapses them).
type authState struct {
	mu               sync.Mutex
	group            singleflight.Group
	accessToken      string
	tokenExpiry      time.Time
	sessionCookies   string
	lastSessionCheck time.Time
}

// authMethodFor picks the auth scheme for an endpoint. In hybrid mode the
// CPM and PowerQuery endpoints only accept an admin session; the public web
// services take OAuth bearer tokens.
func (c *Client) authMethodFor(endpoint string) string {
	switch c.server.AuthMethod {
	case config.AuthSession:
		return config.AuthSession
	case config.AuthOAuth:
		return config.AuthOAuth
	default:
		if strings.Contains(endpoint, "/ws/cpm/") || strings.Contains(endpoint, "/ws/schema/query/") {
			return config.AuthSession
		}
		return config.AuthOAuth
	}
}

// ensureAuthenticated makes sure the credential cache holds something usable
// for the endpoint before a request goes out.
func (c *Client) ensureAuthenticated(ctx context.Context, endpoint string) error {
	method := c.authMethodFor(endpoint)

	_, err, _ := c.auth.group.Do(method, func() (interface{}, error) {
		if method == config.AuthSession {
			return nil, c.ensureSessionAuth(ctx)
		}
		return nil, c.ensureOAuthToken(ctx)
	})
	return err
}

// setAuthHeaders applies the cached credential for the endpoint to req.
func (c *Client) setAuthHeaders(req *http.Request, endpoint string) {
	c.auth.mu.Lock()
	defer c.auth.mu.Unlock()

	if c.authMethodFor(endpoint) == config.AuthSession {
		req.Header.Set("Cookie", c.auth.sessionCookies)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.auth.accessToken)
	}
}

// ClearAuth drops all cached credentials. The next request re-authenticates.
func (c *Client) ClearAuth() {
	c.auth.mu.Lock()
	defer c.auth.mu.Unlock()
	c.auth.accessToken = ""
	c.auth.tokenExpiry = time.Time{}
	c.auth.sessionCookies = ""
	c.auth.lastSessionCheck = time.Time{}
}

// ensureOAuthToken performs a client-credentials token exchange when the
// cached bearer token is missing or expired.
func (c *Client) ensureOAuthToken(ctx context.Context) error {
	c.auth.mu.Lock()
	if c.auth.accessToken != "" && time.Now().Before(c.auth.tokenExpiry) {
		c.auth.mu.Unlock()
		return nil
	}
	c.auth.mu.Unlock()

	if c.server.ClientID == "" || c.server.ClientSecret == "" {
		return errors.Errorf("OAuth credentials missing, set server.client_id and server.client_secret: %w", ErrNotConfigured)
	}

	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/access_token", body)
	if err != nil {
		return errors.Errorf("creating token request: %w", err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.server.ClientID + ":" + c.server.ClientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf("token exchange failed: %v: %w", err, ErrRemoteUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("reading token response: %w", err)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(data, &token); err != nil {
		return errors.Errorf("parsing token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || token.AccessToken == "" {
		return errors.Errorf("token exchange failed (%d, %s): %w", resp.StatusCode, token.Error, ErrRemoteUnavailable)
	}

	c.auth.mu.Lock()
	c.auth.accessToken = token.AccessToken
	c.auth.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.auth.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Msg("refreshed OAuth token")
	return nil
}

// ensureSessionAuth logs in to the admin home page and harvests the session
// cookies when the cached session is older than the recheck window.
func (c *Client) ensureSessionAuth(ctx context.Context) error {
	now := time.Now()

	c.auth.mu.Lock()
	if c.auth.sessionCookies != "" && now.Sub(c.auth.lastSessionCheck) < sessionRecheckWindow {
		c.auth.mu.Unlock()
		return nil
	}
	c.auth.mu.Unlock()

	if c.server.Username == "" || c.server.Password == "" {
		return errors.Errorf("session credentials missing, set server.username and server.password: %w", ErrNotConfigured)
	}

	form := url.Values{
		"account":       {c.server.Username},
		"pw":            {c.server.Password},
		"translatedMDY": {now.Format("1/2/2006")},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/home.html", strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf("session login failed: %v: %w", err, ErrRemoteUnavailable)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// A successful login answers with a redirect carrying the session cookies.
	cookies := resp.Header.Values("Set-Cookie")
	if resp.StatusCode != http.StatusFound || len(cookies) == 0 {
		return errors.Errorf("session authentication failed (%d): %w", resp.StatusCode, ErrRemoteUnavailable)
	}

	pairs := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		if idx := strings.Index(cookie, ";"); idx >= 0 {
			cookie = cookie[:idx]
		}
		pairs = append(pairs, cookie)
	}

	c.auth.mu.Lock()
	c.auth.sessionCookies = strings.Join(pairs, "; ")
	c.auth.lastSessionCheck = now
	c.auth.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Msg("refreshed admin session")
	return nil
}
