// Package helpdesk adapts the helpdesk REST API (Zoho Desk wire format)
// to the pipeline's outbound ports.
package helpdesk

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"ticket_server/pkg/httputil"
	"ticket_server/pkg/logger"
)

// tokenValidity is how long a freshly issued access token is trusted
// before a refresh is forced, matching the issuer's advertised lifetime.
const tokenValidity = 3600 * time.Second

// RefreshSource exchanges a refresh token for a new access token.
type RefreshSource interface {
	Refresh(ctx context.Context) (string, error)
}

// TokenProvider caches the helpdesk access token and refreshes it through
// the source when expired. Refresh is single-flight: concurrent callers
// block on the same refresh instead of issuing duplicates.
type TokenProvider struct {
	mu     sync.Mutex
	source RefreshSource
	now    func() time.Time

	token  string
	expiry time.Time

	log *logger.Logger
}

func NewTokenProvider(source RefreshSource) *TokenProvider {
	return &TokenProvider{
		source: source,
		now:    time.Now,
		log:    logger.Default().WithField("component", "helpdesk_token"),
	}
}

// Token returns a valid access token, refreshing if the cached one is
// missing or expired.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.expiry) {
		return p.token, nil
	}

	p.log.Info("access token missing or expired, refreshing")
	token, err := p.source.Refresh(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.New("empty access token from refresh")
	}

	p.token = token
	p.expiry = p.now().Add(tokenValidity)
	return p.token, nil
}

// Invalidate drops the cached token so the next call refreshes. Used after
// a 401 from the API.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

// OAuthConfig configures the refresh-token grant against the helpdesk's
// account server.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// oauthSource implements RefreshSource on the standard OAuth2 refresh flow.
type oauthSource struct {
	cfg OAuthConfig
}

func NewOAuthSource(cfg OAuthConfig) RefreshSource {
	return &oauthSource{cfg: cfg}
}

func (s *oauthSource) Refresh(ctx context.Context) (string, error) {
	conf := &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: s.cfg.TokenURL},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httputil.DefaultClient())
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: s.cfg.RefreshToken}).Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
