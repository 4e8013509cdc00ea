// Package captcha implements the verification challenge provider boundary
// of the contact widget: an asynchronous script load, a single challenge
// render per open cycle, and token verification against the provider's
// siteverify endpoint.
package captcha

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

	"github.com/dkessler/homepage/contact"
	"github.com/dkessler/homepage/log"
)

var (
	ErrAlreadyRendered = errors.New("challenge already rendered, reset first")
	ErrNotRendered     = errors.New("no challenge rendered")
	ErrNotVerified     = errors.New("token rejected by verification provider")
)

// SiteVerify talks to an hCaptcha-style provider: the widget script is a
// public resource, and tokens produced by a solved challenge are checked
// with a form-encoded POST to the siteverify URL. One SiteVerify is
// shared by all sessions; per-session challenge state lives in Challenge.
type SiteVerify struct {
	client    *http.Client
	scriptURL string
	verifyURL string
	secret    string
}

type Option func(*SiteVerify)

// WithScriptURL overrides the provider script resource probed by Load.
func WithScriptURL(u string) Option {
	return func(s *SiteVerify) { s.scriptURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *SiteVerify) { s.client = c }
}

func NewSiteVerify(secret, verifyURL string, opts ...Option) *SiteVerify {
	s := &SiteVerify{
		client:    &http.Client{Timeout: 10 * time.Second},
		scriptURL: "https://js.hcaptcha.com/1/api.js",
		verifyURL: verifyURL,
		secret:    secret,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewChallenge returns the provider capability for one widget session.
func (s *SiteVerify) NewChallenge() *Challenge {
	return &Challenge{svc: s}
}

func (s *SiteVerify) probeScript(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("captcha.load.request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("captcha.load: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha.load: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (s *SiteVerify) verifyToken(ctx context.Context, token string) error {
	body := url.Values{
		"secret":   {s.secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, strings.NewReader(body.Encode()))
	if err != nil {
		return fmt.Errorf("captcha.verify.request: %w", err)
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("captcha.verify: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("captcha.verify.read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha.verify: unexpected status %d", resp.StatusCode)
	}

	var result siteVerifyResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("captcha.verify.parse: %w", err)
	}
	if !result.Success {
		log.Debugf("captcha.verify: rejected (%s)", strings.Join(result.ErrorCodes, ", "))
		return ErrNotVerified
	}
	return nil
}

// Challenge is one session's challenge container. It satisfies the
// widget's provider capability and additionally checks submitted tokens.
type Challenge struct {
	svc *SiteVerify

	mu        sync.Mutex
	rendered  bool
	onSuccess func()
}

var _ contact.Provider = (*Challenge)(nil)

// Load probes the provider script resource and reports the outcome
// through onDone, always from a separate goroutine. The returned cancel
// func abandons the probe; a callback racing with cancel is suppressed.
func (c *Challenge) Load(onDone func(err error)) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	go func() {
		err := c.svc.probeScript(ctx)
		if ctx.Err() != nil {
			return
		}
		onDone(err)
	}()
	return stop
}

// Render arms the success callback for one challenge. The widget itself
// is drawn client-side; here we only track that the container is
// occupied, so it is never rendered twice without a reset.
func (c *Challenge) Render(siteKey string, onSuccess func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rendered {
		return ErrAlreadyRendered
	}
	c.rendered = true
	c.onSuccess = onSuccess
	log.Debugf("captcha.render: site key %s…", truncateKey(siteKey))
	return nil
}

// Reset clears the rendered challenge and disarms the success callback.
func (c *Challenge) Reset() {
	c.mu.Lock()
	c.rendered = false
	c.onSuccess = nil
	c.mu.Unlock()
}

// Submit checks a challenge token with the provider. On success the armed
// callback fires, at most once per render.
func (c *Challenge) Submit(ctx context.Context, token string) error {
	c.mu.Lock()
	rendered := c.rendered
	c.mu.Unlock()
	if !rendered {
		return ErrNotRendered
	}

	if err := c.svc.verifyToken(ctx, token); err != nil {
		return err
	}

	c.mu.Lock()
	onSuccess := c.onSuccess
	c.onSuccess = nil
	c.mu.Unlock()
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

func truncateKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
