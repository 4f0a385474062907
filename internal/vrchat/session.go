// Package vrchat implements the authenticated platform client: the HTTP
// session with rate limiting and 429 backoff, login with two-factor
// resolution, and the friend/world directory.
package vrchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
	"github.com/hazuki-dev/vrcwatch/internal/ports"
	"github.com/hazuki-dev/vrcwatch/internal/ratelimit"
)

const (
	DefaultBaseURL = "https://api.vrchat.cloud/api/1"

	maxResponseBytes = 1 << 20

	// UnknownDisplayName is returned when the identity payload carries no
	// display name.
	UnknownDisplayName = "(unknown)"

	retryAttempts  = 5
	retryBaseSleep = 2 * time.Second
)

// SessionConfig wires a Session. Limiter and Credentials are required;
// everything else has workable defaults.
type SessionConfig struct {
	Credentials domain.Credentials
	Limiter     *ratelimit.Limiter
	CookieStore ports.CookieStore
	Logger      *slog.Logger
	BaseURL     string
	HTTPClient  *http.Client

	// PromptCode reads one email OTP code from the operator. Defaults to
	// a stdin prompt; tests substitute it.
	PromptCode func() (string, error)
	// Interactive reports whether prompting is possible at all.
	Interactive func() bool
}

// Session owns the cookie jar, the auth token and every outbound HTTP call.
// A Session is safe for use from the main flow and the stream runner
// concurrently; login is serialized internally.
type Session struct {
	creds   domain.Credentials
	limiter *ratelimit.Limiter
	store   ports.CookieStore
	logger  *slog.Logger
	client  *http.Client
	jar     http.CookieJar
	baseURL *url.URL

	promptCode  func() (string, error)
	interactive func() bool

	loginMu sync.Mutex
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("session: limiter is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	// Relative path resolution drops the last segment of a base without a
	// trailing slash ("/api/1" + "auth/user" -> "/api/auth/user").
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	client.Jar = jar

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		creds:       cfg.Credentials,
		limiter:     cfg.Limiter,
		store:       cfg.CookieStore,
		logger:      logger.With("component", "session"),
		client:      client,
		jar:         jar,
		baseURL:     baseURL,
		promptCode:  cfg.PromptCode,
		interactive: cfg.Interactive,
	}
	if s.promptCode == nil {
		s.promptCode = promptStdin
	}
	if s.interactive == nil {
		s.interactive = func() bool { return isatty.IsTerminal(os.Stdin.Fd()) }
	}

	s.loadCookies()
	return s, nil
}

func promptStdin() (string, error) {
	fmt.Print("Enter Email OTP code: ")
	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return "", fmt.Errorf("read otp code: %w", err)
	}
	return strings.TrimSpace(code), nil
}

func (s *Session) loadCookies() {
	if s.store == nil {
		return
	}
	cookies, err := s.store.Load()
	if err != nil {
		s.logger.Warn("cookie load failed", "error", err)
		return
	}
	if len(cookies) > 0 {
		s.jar.SetCookies(s.baseURL, cookies)
	}
}

func (s *Session) saveCookies() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.jar.Cookies(s.baseURL)); err != nil {
		s.logger.Warn("cookie save failed", "error", err)
	}
}

type request struct {
	method    string
	path      string
	query     url.Values
	body      any
	basicAuth bool
}

// do issues one platform request through the rate limiter, absorbing 429s
// with Retry-After or exponential backoff for up to retryAttempts tries.
// The final response is returned whatever its status; callers interpret it.
func (s *Session) do(ctx context.Context, r request) (*http.Response, error) {
	endpoint, err := s.baseURL.Parse(strings.TrimPrefix(r.path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse request path: %w", err)
	}
	if r.query != nil {
		endpoint.RawQuery = r.query.Encode()
	}

	var payload []byte
	if r.body != nil {
		payload, err = json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	var resp *http.Response
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if !s.limiter.Acquire(ctx, 1) {
			return nil, ctx.Err()
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, endpoint.String(), body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", s.creds.UserAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if r.basicAuth {
			req.SetBasicAuth(s.creds.Username, s.creds.Password)
		}

		resp, err = s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.method, endpoint.Path, err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		// Out of retries: hand back the final 429 with its body intact.
		if attempt == retryAttempts-1 {
			break
		}

		wait := retryWait(resp.Header.Get("Retry-After"), attempt)
		drain(resp)
		s.logger.Warn("rate limited", "path", endpoint.Path, "wait", wait,
			"attempt", attempt+1, "max", retryAttempts)
		if !sleepCtx(ctx, wait) {
			return nil, ctx.Err()
		}
	}
	return resp, nil
}

func retryWait(retryAfter string, attempt int) time.Duration {
	wait := retryBaseSleep * (1 << attempt)
	if retryAfter != "" {
		if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil && secs >= 0 {
			wait = time.Duration(secs * float64(time.Second))
		}
	}
	return wait + time.Duration(rand.Int63n(int64(500*time.Millisecond)))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}

func decodeObject(resp *http.Response) (map[string]any, error) {
	defer func() { _ = resp.Body.Close() }()
	var payload map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

// AuthUser fetches the current identity, retrying once with basic
// credentials when the session cookie is absent or expired.
func (s *Session) AuthUser(ctx context.Context) (map[string]any, error) {
	resp, err := s.do(ctx, request{method: http.MethodGet, path: "auth/user"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		resp, err = s.do(ctx, request{method: http.MethodGet, path: "auth/user", basicAuth: true})
		if err != nil {
			return nil, err
		}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		drain(resp)
		return nil, fmt.Errorf("auth/user: status %d", resp.StatusCode)
	}
	return decodeObject(resp)
}

func (s *Session) authUserBasic(ctx context.Context) (map[string]any, error) {
	resp, err := s.do(ctx, request{method: http.MethodGet, path: "auth/user", basicAuth: true})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		drain(resp)
		return nil, fmt.Errorf("auth/user: status %d", resp.StatusCode)
	}
	return decodeObject(resp)
}

// AuthToken reads the session auth token from the cookie jar: the cookie
// named "auth", or failing that the first cookie whose name starts with
// "auth" case-insensitively. Empty when not logged in.
func (s *Session) AuthToken() string {
	cookies := s.jar.Cookies(s.baseURL)
	for _, c := range cookies {
		if c.Name == "auth" {
			return c.Value
		}
	}
	for _, c := range cookies {
		if strings.HasPrefix(strings.ToLower(c.Name), "auth") {
			return c.Value
		}
	}
	return ""
}

// Probe issues a lightweight identity check and reports whether the session
// is still authenticated. Network errors count as authenticated so a
// transient outage doesn't trigger a needless re-login.
func (s *Session) Probe(ctx context.Context) bool {
	resp, err := s.do(ctx, request{method: http.MethodGet, path: "auth/user"})
	if err != nil {
		return true
	}
	drain(resp)
	return resp.StatusCode != http.StatusUnauthorized
}

// EnsureLogin brings the session to an authenticated state and returns the
// auth token and display name. Idempotent: an already-valid cookie session
// short-circuits the credential and two-factor steps.
func (s *Session) EnsureLogin(ctx context.Context) (token, displayName string, err error) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	data, err := s.AuthUser(ctx)
	if err != nil {
		s.logger.Debug("identity fetch failed, retrying with credentials", "error", err)
		data, err = s.authUserBasic(ctx)
		if err != nil {
			return "", "", err
		}
	}

	token = s.AuthToken()
	if token == "" {
		return "", "", domain.ErrAuthTokenMissing
	}

	if needsTwoFactor(data) {
		if err := s.resolveTwoFactor(ctx); err != nil {
			return "", "", err
		}
		if refreshed, err := s.AuthUser(ctx); err == nil {
			data = refreshed
		}
		// Verification may rotate the session cookie.
		if rotated := s.AuthToken(); rotated != "" {
			token = rotated
		}
	}

	s.saveCookies()

	displayName = UnknownDisplayName
	if name, ok := data["displayName"].(string); ok && name != "" {
		displayName = name
	}
	return token, displayName, nil
}

// needsTwoFactor decides whether the identity payload demands verification:
// not a well-formed object, missing the display name, or explicitly flagged.
func needsTwoFactor(data map[string]any) bool {
	if data == nil {
		return true
	}
	if _, ok := data["displayName"]; !ok {
		return true
	}
	if flagged, ok := data["requiresTwoFactorAuth"]; ok && truthy(flagged) {
		return true
	}
	if msg, ok := data["requiresTwoFactorAuthMessage"]; ok && truthy(msg) {
		return true
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case nil:
		return false
	default:
		return true
	}
}
