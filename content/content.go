// Package content loads the site's Markdown files and static data and
// keeps the blog posts indexed in sqlite for listing and lookup.
package content

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	meta "github.com/yuin/goldmark-meta"
	"gopkg.in/yaml.v3"

	"github.com/dkessler/homepage/log"
	"github.com/dkessler/homepage/model"
)

var ErrNotFound = errors.New("content: not found")

type Store struct {
	db  *sql.DB
	dir string
	md  goldmark.Markdown
	gen atomic.Int64
}

func NewStore(db *sql.DB, dir string) *Store {
	return &Store{
		db:  db,
		dir: dir,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, meta.Meta),
			// own content, raw HTML in posts is fine
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Generation increments every time the index content changes. Page caches
// key on it.
func (s *Store) Generation() int64 {
	return s.gen.Load()
}

// Reindex scans the posts directory, renders every Markdown file and
// replaces the index contents. Files with a broken front-matter schema
// are skipped with a warning so one bad draft never takes the site down.
func (s *Store) Reindex(ctx context.Context) error {
	paths, err := filepath.Glob(filepath.Join(s.dir, "posts", "*.md"))
	if err != nil {
		return fmt.Errorf("content.reindex.glob: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("content.reindex.begin_tx: %w", err)
	}
	defer tx.Rollback()

	stamp := time.Now()
	indexed := 0
	for _, path := range paths {
		post, err := s.parsePost(path)
		if err != nil {
			log.Warnf("content.reindex: skipping %s: %s", path, err)
			continue
		}

		tags, err := json.Marshal(post.Tags)
		if err != nil {
			return fmt.Errorf("content.reindex.tags: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO post (slug, title, date, description, tags, html, source_path, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (slug) DO UPDATE SET
				title = excluded.title,
				date = excluded.date,
				description = excluded.description,
				tags = excluded.tags,
				html = excluded.html,
				source_path = excluded.source_path,
				indexed_at = excluded.indexed_at`,
			post.Slug, post.Title, post.Date, post.Description, string(tags), post.HTML, path, stamp,
		)
		if err != nil {
			return fmt.Errorf("content.reindex.upsert: %w", err)
		}
		indexed++
	}

	// drop index rows whose source files are gone
	_, err = tx.ExecContext(ctx, "DELETE FROM post WHERE indexed_at < ?", stamp)
	if err != nil {
		return fmt.Errorf("content.reindex.prune: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("content.reindex.commit: %w", err)
	}

	s.gen.Add(1)
	log.Infof("content.reindex: %d posts indexed", indexed)
	return nil
}

func (s *Store) parsePost(path string) (post model.Post, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err = s.md.Convert(src, &buf, parser.WithContext(pctx)); err != nil {
		return
	}

	front := meta.Get(pctx)
	title, _ := front["title"].(string)
	if strings.TrimSpace(title) == "" {
		err = errors.New("front-matter: missing title")
		return
	}
	rawDate, _ := front["date"].(string)
	date, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		err = fmt.Errorf("front-matter: bad date %q", rawDate)
		return
	}

	post = model.Post{
		Slug:  strings.TrimSuffix(filepath.Base(path), ".md"),
		Title: title,
		Date:  date,
		HTML:  buf.String(),
	}
	post.Description, _ = front["description"].(string)
	if rawTags, ok := front["tags"].([]any); ok {
		for _, t := range rawTags {
			if tag, ok := t.(string); ok {
				post.Tags = append(post.Tags, tag)
			}
		}
	}
	return
}

// List returns post metadata (no body), newest first.
func (s *Store) List(ctx context.Context) ([]model.Post, error) {
	return s.listPosts(ctx, 0)
}

// Recent returns the n newest posts' metadata.
func (s *Store) Recent(ctx context.Context, n int) ([]model.Post, error) {
	return s.listPosts(ctx, n)
}

func (s *Store) listPosts(ctx context.Context, limit int) ([]model.Post, error) {
	query := "SELECT slug, title, date, description, tags FROM post ORDER BY date DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("content.list: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var post model.Post
		var tags string
		err = rows.Scan(&post.Slug, &post.Title, &post.Date, &post.Description, &tags)
		if err != nil {
			return nil, fmt.Errorf("content.list.scan: %w", err)
		}
		if err = json.Unmarshal([]byte(tags), &post.Tags); err != nil {
			return nil, fmt.Errorf("content.list.tags: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// BySlug returns one full post, or ErrNotFound.
func (s *Store) BySlug(ctx context.Context, slug string) (model.Post, error) {
	var post model.Post
	var tags string
	err := s.db.QueryRowContext(ctx, `
		SELECT slug, title, date, description, tags, html
		FROM post WHERE slug = ?`,
		slug,
	).Scan(&post.Slug, &post.Title, &post.Date, &post.Description, &tags, &post.HTML)
	if errors.Is(err, sql.ErrNoRows) {
		return post, ErrNotFound
	}
	if err != nil {
		return post, fmt.Errorf("content.by_slug: %w", err)
	}
	if err = json.Unmarshal([]byte(tags), &post.Tags); err != nil {
		return post, fmt.Errorf("content.by_slug.tags: %w", err)
	}
	return post, nil
}

// About renders the about page body to HTML.
func (s *Store) About() (string, error) {
	src, err := os.ReadFile(filepath.Join(s.dir, "about.md"))
	if err != nil {
		return "", fmt.Errorf("content.about: %w", err)
	}

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err = s.md.Convert(src, &buf, parser.WithContext(pctx)); err != nil {
		return "", fmt.Errorf("content.about.render: %w", err)
	}
	return buf.String(), nil
}

// ReadingList decodes the reading list data file.
func (s *Store) ReadingList() ([]model.ReadingEntry, error) {
	src, err := os.ReadFile(filepath.Join(s.dir, "reading.yaml"))
	if err != nil {
		return nil, fmt.Errorf("content.reading: %w", err)
	}

	var entries []model.ReadingEntry
	if err = yaml.Unmarshal(src, &entries); err != nil {
		return nil, fmt.Errorf("content.reading.parse: %w", err)
	}
	return entries, nil
}
