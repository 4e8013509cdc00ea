package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dkessler/homepage/app"
	"github.com/dkessler/homepage/routes/middlewares"
	"github.com/dkessler/homepage/web"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)
	root.Use(middlewares.Session)

	root.Mount("/api", apiRouter(app))
	root.Mount("/static", http.StripPrefix("/static", web.Static()))

	root.Group(func(r chi.Router) {
		r.Use(middlewares.PageCache(app.Generation))
		r.Get("/", Home(app))
		r.Get("/about", About(app))
		r.Get("/reading", Reading(app))
		r.Get("/blog", BlogIndex(app))
		r.Get("/blog/{slug}", BlogPost(app))
	})
	root.NotFound(NotFoundPage(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Route("/contact", func(r chi.Router) {
		r.Post("/", OpenContact(app))
		r.Get("/", ContactState(app))
		r.Delete("/", CloseContact(app))
		r.Put("/draft", UpdateContactDraft(app))
		r.Post("/verify", VerifyContact(app))
		r.Post("/submit", SubmitContact(app))
	})

	return api
}
