package ebay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultIdentityURL = "https://api.ebay.com/identity/v1/oauth2/token"
	DefaultScope       = "https://api.ebay.com/oauth/api_scope"

	// Access tokens are dropped this long before eBay expires them.
	expirySkew = 5 * time.Minute
)

var ErrNoToken = errors.New("neither a user token nor a refresh token is configured")

type TokenCache interface {
	Token(ctx context.Context, key string) (string, bool, error)
	SetToken(ctx context.Context, key, token string, ttl time.Duration) error
}

// Auth hands out user access tokens for one account. With a refresh token it
// mints access tokens through the OAuth refresh grant, caching them in memory
// and, when configured, in a shared TokenCache so later runs reuse them.
// Without one it returns the static user token as is.
type Auth struct {
	identityURL  string
	creds        Credentials
	userToken    string
	refreshToken string
	scope        string

	cache    TokenCache
	cacheKey string

	httpc *http.Client
	now   func() time.Time

	token     string
	expiresAt time.Time
}

func NewAuth(identityURL string, creds Credentials, userToken, refreshToken string) *Auth {
	if identityURL == "" {
		identityURL = DefaultIdentityURL
	}
	return &Auth{
		identityURL:  identityURL,
		creds:        creds,
		userToken:    userToken,
		refreshToken: refreshToken,
		scope:        DefaultScope,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (a *Auth) WithCache(c TokenCache, key string) *Auth {
	if c != nil && key != "" {
		a.cache = c
		a.cacheKey = key
	}
	return a
}

func (a *Auth) WithScope(scope string) *Auth {
	if scope != "" {
		a.scope = scope
	}
	return a
}

func (a *Auth) Token(ctx context.Context) (string, error) {
	if a.refreshToken == "" {
		if a.userToken == "" {
			return "", ErrNoToken
		}
		return a.userToken, nil
	}

	now := a.now()
	if a.token != "" && now.Before(a.expiresAt) {
		return a.token, nil
	}

	if a.cache != nil {
		// A broken cache only costs a refresh call.
		if tok, ok, err := a.cache.Token(ctx, a.cacheKey); err == nil && ok {
			a.token, a.expiresAt = tok, now.Add(expirySkew)
			return tok, nil
		}
	}

	tok, ttl, err := a.refresh(ctx)
	if err != nil {
		return "", err
	}
	if ttl > expirySkew {
		ttl -= expirySkew
	}
	a.token, a.expiresAt = tok, now.Add(ttl)
	if a.cache != nil {
		_ = a.cache.SetToken(ctx, a.cacheKey, tok, ttl)
	}
	return tok, nil
}

type tokenResp struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (a *Auth) refresh(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", a.refreshToken)
	form.Set("scope", a.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.identityURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.creds.AppID, a.creds.ClientSecret)

	resp, err := a.httpc.Do(req)
	if err != nil {
		return "", 0, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	var tr tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", 0, errors.Wrapf(err, "decode token response (http %d)", resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 || tr.AccessToken == "" {
		return "", 0, errors.Errorf("ebay token refresh http %d: %s %s", resp.StatusCode, tr.Error, tr.ErrorDescription)
	}
	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}
