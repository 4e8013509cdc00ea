package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/dkessler/homepage/app"
	"github.com/dkessler/homepage/captcha"
	"github.com/dkessler/homepage/contact"
	"github.com/dkessler/homepage/httpx"
	"github.com/dkessler/homepage/log"
	"github.com/dkessler/homepage/model"
	"github.com/dkessler/homepage/routes/middlewares"
)

// tokenVerifier is the slice of the provider capability the verify
// endpoint needs: check a challenge token, fire the success callback.
type tokenVerifier interface {
	Submit(ctx context.Context, token string) error
}

func OpenContact(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)
		if sid == "" {
			return
		}

		sess := app.Sessions.Open(sid)
		render.JSON(w, r, sess.Widget.State())
	}
}

func ContactState(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)
		if sid == "" {
			return
		}

		sess, ok := app.Sessions.Get(sid)
		if !ok {
			render.JSON(w, r, contact.Snapshot{Mode: contact.Closed})
			return
		}
		render.JSON(w, r, sess.Widget.State())
	}
}

func UpdateContactDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)
		if sid == "" {
			return
		}

		var draft model.Draft
		if err := render.DecodeJSON(r.Body, &draft); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "contact.draft.parse_body")
			return
		}

		sess, ok := app.Sessions.Get(sid)
		if !ok {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "contact.draft.no_session")
			return
		}

		sess.Widget.SetDraft(draft)
		render.JSON(w, r, sess.Widget.State())
	}
}

func VerifyContact(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)
		if sid == "" {
			return
		}

		var body struct {
			Token string `json:"token"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "contact.verify.parse_body")
			return
		}

		sess, ok := app.Sessions.Get(sid)
		if !ok {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "contact.verify.no_session")
			return
		}

		verifier, ok := sess.Provider.(tokenVerifier)
		if !ok {
			httpx.LogInternalError(w, "contact.verify.provider", errors.New("provider cannot verify tokens"))
			return
		}

		err := verifier.Submit(r.Context(), body.Token)
		switch {
		case errors.Is(err, captcha.ErrNotRendered):
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "contact.verify.not_rendered")
			return
		case errors.Is(err, captcha.ErrNotVerified):
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "contact.verify.rejected")
			return
		case err != nil:
			httpx.LogStatus(w, http.StatusBadGateway, log.WarnLevel, "contact.verify.upstream")
			return
		}

		render.JSON(w, r, sess.Widget.State())
	}
}

func SubmitContact(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)
		if sid == "" {
			return
		}

		sess, ok := app.Sessions.Get(sid)
		if !ok {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "contact.submit.no_session")
			return
		}

		card, revealed := sess.Widget.Submit()
		if revealed {
			render.JSON(w, r, card)
			return
		}

		msg := sess.Widget.ValidationError()
		if msg == "" {
			// widget was never opened
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "contact.submit.not_collecting")
			return
		}

		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]any{
			"error": msg,
		})
	}
}

func CloseContact(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)
		if sid == "" {
			return
		}

		app.Sessions.Close(sid)
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) string {
	sid := middlewares.SessionID(r)
	if sid == "" {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "contact.session_id")
	}
	return sid
}
