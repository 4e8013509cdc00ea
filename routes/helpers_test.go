package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkessler/homepage/app"
	"github.com/dkessler/homepage/captcha"
	"github.com/dkessler/homepage/config"
	"github.com/dkessler/homepage/contact"
	"github.com/dkessler/homepage/content"
	"github.com/dkessler/homepage/database"
	"github.com/dkessler/homepage/model"
	"github.com/dkessler/homepage/routes"
)

// fakeProvider is an offline stand-in for the captcha challenge: loads
// instantly on request, and accepts exactly the token "good-token".
type fakeProvider struct {
	mu        sync.Mutex
	onDone    func(err error)
	onSuccess func()
	rendered  bool
}

func (p *fakeProvider) Load(onDone func(err error)) (cancel func()) {
	p.mu.Lock()
	p.onDone = onDone
	p.mu.Unlock()
	return func() {}
}

func (p *fakeProvider) Render(siteKey string, onSuccess func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rendered {
		return captcha.ErrAlreadyRendered
	}
	p.rendered = true
	p.onSuccess = onSuccess
	return nil
}

func (p *fakeProvider) Reset() {
	p.mu.Lock()
	p.rendered = false
	p.onSuccess = nil
	p.mu.Unlock()
}

func (p *fakeProvider) Submit(ctx context.Context, token string) error {
	p.mu.Lock()
	rendered := p.rendered
	p.mu.Unlock()
	if !rendered {
		return captcha.ErrNotRendered
	}
	if token != "good-token" {
		return captcha.ErrNotVerified
	}

	p.mu.Lock()
	onSuccess := p.onSuccess
	p.onSuccess = nil
	p.mu.Unlock()
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

func (p *fakeProvider) finishLoad(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	onDone := p.onDone
	p.onDone = nil
	p.mu.Unlock()
	require.NotNil(t, onDone, "no load in flight")
	onDone(nil)
}

type testEnv struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client

	mu        sync.Mutex
	providers []*fakeProvider
}

// provider returns the challenge provider of the most recent session.
func (env *testEnv) provider() *fakeProvider {
	env.mu.Lock()
	defer env.mu.Unlock()
	require.NotEmpty(env.t, env.providers, "no session opened yet")
	return env.providers[len(env.providers)-1]
}

const testPost = `---
title: Testing in anger
date: 2026-04-01
description: A post for the test suite.
tags: [go]
---

Body with an *emphasis*.
`

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "posts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "posts", "testing-in-anger.md"), []byte(testPost), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.md"), []byte("# Hi\n\nAbout body.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reading.yaml"), []byte("- title: A Book\n  author: A. Writer\n"), 0o644))

	cfg := config.Config{
		SiteTitle:      "example.test",
		ContentDir:     dir,
		DBPath:         filepath.Join(dir, "index.sqlite"),
		CaptchaSiteKey: "site-key-1",
		ContactEmail:   "hello@example.test",
		ResumeURL:      "https://example.test/resume.pdf",
		SessionTTL:     time.Minute,
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := content.NewStore(db, dir)
	require.NoError(t, store.Reindex(context.Background()))

	env := &testEnv{t: t}
	card := model.ContactCard{Email: cfg.ContactEmail, ResumeURL: cfg.ResumeURL}
	sessions := contact.NewSessions(cfg.SessionTTL, func() contact.Session {
		provider := &fakeProvider{}
		env.mu.Lock()
		env.providers = append(env.providers, provider)
		env.mu.Unlock()
		return contact.Session{
			Widget:   contact.NewWidget(provider, cfg.CaptchaSiteKey, card),
			Provider: provider,
		}
	})

	handler := routes.Wire(app.App{
		Store:    store,
		Sessions: sessions,
		Config:   cfg,
	})

	env.server = httptest.NewServer(handler)
	t.Cleanup(env.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{Jar: jar}

	return env
}

// do performs a request with the shared cookie jar and decodes any JSON body.
func (env *testEnv) do(method, path string, body any) (int, map[string]any) {
	env.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(env.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(env.t, err)
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := env.client.Do(req)
	require.NoError(env.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(env.t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		json.Unmarshal(raw, &decoded)
	}
	return resp.StatusCode, decoded
}

func (env *testEnv) get(path string) (int, string) {
	env.t.Helper()

	resp, err := env.client.Get(env.server.URL + path)
	require.NoError(env.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(env.t, err)
	return resp.StatusCode, string(raw)
}
