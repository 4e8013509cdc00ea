package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dkessler/homepage/app"
	"github.com/dkessler/homepage/captcha"
	"github.com/dkessler/homepage/config"
	"github.com/dkessler/homepage/contact"
	"github.com/dkessler/homepage/content"
	"github.com/dkessler/homepage/database"
	"github.com/dkessler/homepage/log"
	"github.com/dkessler/homepage/model"
	"github.com/dkessler/homepage/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	ctx := context.Background()

	store := content.NewStore(db, cfg.ContentDir)
	if err = store.Reindex(ctx); err != nil {
		log.Fatal("main.content.reindex:", err)
	}
	go func() {
		err := store.Watch(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("main.content.watch:", err)
		}
	}()

	verifier := captcha.NewSiteVerify(cfg.CaptchaSecret, cfg.CaptchaURL)
	card := model.ContactCard{
		Email:     cfg.ContactEmail,
		ResumeURL: cfg.ResumeURL,
	}
	sessions := contact.NewSessions(cfg.SessionTTL, func() contact.Session {
		challenge := verifier.NewChallenge()
		return contact.Session{
			Widget:   contact.NewWidget(challenge, cfg.CaptchaSiteKey, card),
			Provider: challenge,
		}
	})
	go sessions.Sweep(ctx)

	app := app.App{
		Store:    store,
		Sessions: sessions,
		Config:   cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
