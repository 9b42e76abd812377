package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/agentic-research/lectern/api"
	"github.com/agentic-research/lectern/internal/database"
	"github.com/agentic-research/lectern/internal/ingest"
)

// Article is an article as seen in one language.
type Article struct {
	ID int64
	// CategoryID is 0 for articles at the content root.
	CategoryID int64
	Name       string
	Author     string
	Published  time.Time
	Edited     time.Time
	Path       string

	Lang        string
	Title       string
	Description string
	// File is the content file path, relative to the content root.
	File string
	// Keywords is the comma separated keyword list as written.
	Keywords string

	session *Session
}

const articleColumns = `id, category, identifier, author, published, edited, path, lang, title, description, file, keywords`

func (s *Session) scanArticle(scanner rowScanner) (*Article, error) {
	var (
		a                 Article
		category          sql.NullInt64
		name              sql.NullString
		published, edited string
	)
	err := scanner.Scan(&a.ID, &category, &name, &a.Author, &published, &edited, &a.Path,
		&a.Lang, &a.Title, &a.Description, &a.File, &a.Keywords)
	if err != nil {
		return nil, err
	}
	a.CategoryID = category.Int64
	a.Name = name.String
	if a.Published, err = time.Parse(ingest.TimeLayout, published); err != nil {
		return nil, fmt.Errorf("article %d published: %w", a.ID, err)
	}
	if a.Edited, err = time.Parse(ingest.TimeLayout, edited); err != nil {
		return nil, fmt.Errorf("article %d edited: %w", a.ID, err)
	}
	a.session = s
	return &a, nil
}

func (s *Session) findArticle(op, where string, arg any) (*Article, error) {
	s.c.metrics.ObserveQuery(op)
	query := `SELECT ` + articleColumns + ` FROM articles WHERE ` + where + ` AND lang = ?`
	row := s.c.db.QueryRow(s.c.db.Dialect.Rebind(query), arg, s.lang)
	a, err := s.scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, api.Storage(op, err)
	}
	return a, nil
}

// Article returns the article with id in the session language.
func (s *Session) Article(id int64) (*Article, error) {
	a, err := s.findArticle("article", "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("article %d: %w", id, err)
	}
	return a, nil
}

// ArticleByName returns the article with the given stable name.
func (s *Session) ArticleByName(name string) (*Article, error) {
	a, err := s.findArticle("article by name", "identifier = ?", name)
	if err != nil {
		return nil, fmt.Errorf("article %q: %w", name, err)
	}
	return a, nil
}

// Articles yields the articles directly owned by category (0 for the
// content root).
func (s *Session) Articles(category int64, opts ListOptions) iter.Seq2[*Article, error] {
	tail, tailArgs, err := s.listTail(opts)
	if err != nil {
		return failed[*Article](err)
	}
	query := `SELECT ` + articleColumns + ` FROM articles
		WHERE COALESCE(category, 0) = ? AND lang = ?` + tail
	args := append([]any{category, s.lang}, tailArgs...)
	return stream(s, "articles", query, args, s.scanArticle)
}

// ArticlesRecursive yields the articles owned by category or by any
// category below it, at most MaxDepth levels down. Each article appears
// once.
func (s *Session) ArticlesRecursive(category int64, opts ListOptions) iter.Seq2[*Article, error] {
	tail, tailArgs, err := s.listTail(opts)
	if err != nil {
		return failed[*Article](err)
	}
	if s.c.subtreeWalk || !s.c.db.Dialect.Recursive {
		return s.articlesInSubtree(category, tail, tailArgs)
	}

	query := `WITH RECURSIVE subtree(id, depth) AS (
			SELECT CAST(? AS BIGINT), 0
			UNION
			SELECT ci.id, st.depth + 1
			FROM categories_indexes ci
			JOIN subtree st ON COALESCE(ci.parent, 0) = st.id
			WHERE st.depth < ?
		)
		SELECT ` + articleColumns + ` FROM articles
		WHERE lang = ? AND COALESCE(category, 0) IN (SELECT id FROM subtree)` + tail
	args := append([]any{category, MaxDepth, s.lang}, tailArgs...)
	return stream(s, "articles recursive", query, args, s.scanArticle)
}

// articlesInSubtree resolves the subtree first, then lists its articles.
func (s *Session) articlesInSubtree(category int64, tail string, tailArgs []any) iter.Seq2[*Article, error] {
	return func(yield func(*Article, error) bool) {
		ids, err := s.c.Subtree(category)
		if err != nil {
			yield(nil, err)
			return
		}
		query := `SELECT ` + articleColumns + ` FROM articles
			WHERE lang = ? AND COALESCE(category, 0) IN (` + database.Placeholders(len(ids)) + `)` + tail
		args := make([]any, 0, len(ids)+1+len(tailArgs))
		args = append(args, s.lang)
		for _, id := range ids {
			args = append(args, id)
		}
		args = append(args, tailArgs...)
		for a, err := range stream(s, "articles recursive", query, args, s.scanArticle) {
			if !yield(a, err) {
				return
			}
		}
	}
}

func (s *Session) listTail(opts ListOptions) (string, []any, error) {
	order, err := opts.Order.clause()
	if err != nil {
		return "", nil, err
	}
	page, args := s.c.db.Dialect.Page(opts.Limit, opts.Offset)
	return order + page, args, nil
}

// Category returns the category owning a, or api.ErrNotFound for
// articles at the content root.
func (a *Article) Category() (*Category, error) {
	if a.CategoryID == 0 {
		return nil, fmt.Errorf("category of article %d: %w", a.ID, api.ErrNotFound)
	}
	return a.session.Category(a.CategoryID)
}

// KeywordList splits Keywords on commas, dropping blanks.
func (a *Article) KeywordList() []string {
	var out []string
	for _, k := range strings.Split(a.Keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
