package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "resumaid/internal/shared/auth"
	"resumaid/internal/shared/server/middleware"
	"resumaid/internal/shared/server/respond"
)

// GoogleService handles Google OAuth flows and the session cookie.
type GoogleService struct {
	oauthConfig  *oauth2.Config
	uiRedirect   string
	secureCookie bool
	stateTTL     time.Duration
	stateStore   *stateStore
	userInfo     func(ctx context.Context, token *oauth2.Token) (googleUserInfo, error)
}

// NewGoogleService builds a GoogleService. secureCookie marks the session
// cookie Secure, which production deployments behind TLS want.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, secureCookie bool) *GoogleService {
	s := &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:   uiRedirect,
		secureCookie: secureCookie,
		stateTTL:     5 * time.Minute,
		stateStore:   newStateStore(),
	}
	s.userInfo = s.fetchUserInfo
	return s
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
	rg.POST("/auth/signout", s.signOut)
}

func (s *GoogleService) start(c *gin.Context) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" || s.oauthConfig.RedirectURL == "" {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, pendingSignIn{expires: time.Now().Add(s.stateTTL), next: safeNext(c.Query("next"))})

	url := s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusFound, url)
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	pending, ok := s.stateStore.consume(state)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.userInfo(ctx, token)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	if userInfo.Sub == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "invalid user profile", nil)
		return
	}

	session, err := sharedauth.SignJWT(sharedauth.Claims{
		Email:            userInfo.Email,
		Name:             userInfo.Name,
		Picture:          userInfo.Picture,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "google:" + userInfo.Sub},
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	redirectURL, err := appendToken(s.uiRedirect, session, pending.next)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	s.setSessionCookie(c, session, int(sharedauth.SessionTTL.Seconds()))
	c.Redirect(http.StatusFound, redirectURL)
}

func (s *GoogleService) signOut(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	respond.NoContent(c)
}

func (s *GoogleService) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", s.secureCookie, true)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// Some responses use "id" instead of "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

type pendingSignIn struct {
	expires time.Time
	next    string
}

type stateStore struct {
	items map[string]pendingSignIn
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]pendingSignIn)}
}

// put records a state and drops expired ones.
func (s *stateStore) put(state string, p pendingSignIn) {
	now := time.Now()
	s.mu.Lock()
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
	s.items[state] = p
	s.mu.Unlock()
}

func (s *stateStore) consume(state string) (pendingSignIn, bool) {
	s.mu.Lock()
	p, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	if !ok || time.Now().After(p.expires) {
		return pendingSignIn{}, false
	}
	return p, true
}

// safeNext keeps only same-site relative paths.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

func appendToken(rawURL, token, next string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	if next != "" {
		q.Set("next", next)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
