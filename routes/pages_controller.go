package routes

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dkessler/homepage/app"
	"github.com/dkessler/homepage/content"
	"github.com/dkessler/homepage/httpx"
	"github.com/dkessler/homepage/model"
	"github.com/dkessler/homepage/web"
)

type pageData struct {
	SiteTitle string
	Title     string
	Active    string
	Posts     []model.Post
	Post      model.Post
	Content   template.HTML
	Reading   []model.ReadingEntry
}

const homePostCount = 3

func Home(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := app.Recent(r.Context(), homePostCount)
		if err != nil {
			httpx.LogInternalError(w, "pages.home.posts", err)
			return
		}

		renderPage(w, http.StatusOK, "home", pageData{
			SiteTitle: app.SiteTitle,
			Title:     app.SiteTitle,
			Active:    "home",
			Posts:     posts,
		})
	}
}

func About(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := app.About()
		if err != nil {
			httpx.LogInternalError(w, "pages.about", err)
			return
		}

		renderPage(w, http.StatusOK, "about", pageData{
			SiteTitle: app.SiteTitle,
			Title:     "About — " + app.SiteTitle,
			Active:    "about",
			Content:   template.HTML(body),
		})
	}
}

func Reading(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := app.ReadingList()
		if err != nil {
			httpx.LogInternalError(w, "pages.reading", err)
			return
		}

		renderPage(w, http.StatusOK, "reading", pageData{
			SiteTitle: app.SiteTitle,
			Title:     "Reading — " + app.SiteTitle,
			Active:    "reading",
			Reading:   entries,
		})
	}
}

func BlogIndex(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := app.List(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "pages.blog.list", err)
			return
		}

		renderPage(w, http.StatusOK, "blog", pageData{
			SiteTitle: app.SiteTitle,
			Title:     "Blog — " + app.SiteTitle,
			Active:    "blog",
			Posts:     posts,
		})
	}
}

func BlogPost(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		post, err := app.BySlug(r.Context(), slug)
		if errors.Is(err, content.ErrNotFound) {
			renderPage(w, http.StatusNotFound, "notfound", pageData{
				SiteTitle: app.SiteTitle,
				Title:     "Not found — " + app.SiteTitle,
			})
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "pages.blog.post", err)
			return
		}

		renderPage(w, http.StatusOK, "post", pageData{
			SiteTitle: app.SiteTitle,
			Title:     post.Title + " — " + app.SiteTitle,
			Active:    "blog",
			Post:      post,
		})
	}
}

func NotFoundPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, http.StatusNotFound, "notfound", pageData{
			SiteTitle: app.SiteTitle,
			Title:     "Not found — " + app.SiteTitle,
		})
	}
}

// renderPage executes the template into a buffer first, so a template
// error can still become a clean 500 instead of a half-written page.
func renderPage(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := web.RenderPage(&buf, name, data); err != nil {
		httpx.LogInternalError(w, "pages.render."+name, err)
		return
	}

	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
