// Package catalog is the read side of the article index. A Catalog owns the
// store connection and the content filesystem; a Session scopes queries to
// one language.
//
//	cat, err := catalog.Open(cfg)
//	s := cat.Session("en")
//	for c, err := range s.Categories(0) { ... }
//
// Rows are created once, by ingestion of the content tree when the store is
// first bootstrapped. Nothing here writes to existing entries.
package catalog

import (
	"fmt"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/agentic-research/lectern/api"
	"github.com/agentic-research/lectern/internal/config"
	"github.com/agentic-research/lectern/internal/database"
	"github.com/agentic-research/lectern/internal/metrics"
)

// MaxDepth bounds every walk over the category hierarchy.
const MaxDepth = 100

// Catalog is safe for concurrent use. Sessions are not.
type Catalog struct {
	db      *database.DB
	fs      billy.Filesystem
	root    string
	lang    string
	logger  *zap.Logger
	metrics *metrics.Collector

	now         func() time.Time
	subtreeWalk bool
	ownsDB      bool
	boot        Bootstrap
}

type Option func(*Catalog)

func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegisterer exports ingestion and query counters to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Catalog) { c.metrics = metrics.New(reg) }
}

// WithSubtreeWalk resolves recursive article queries with a breadth-first
// walk over the category table instead of a recursive query.
func WithSubtreeWalk() Option {
	return func(c *Catalog) { c.subtreeWalk = true }
}

// WithClock replaces the time source used to stamp articles that carry no
// published/edited dates.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLanguage sets the language of sessions created by DefaultSession.
func WithLanguage(tag string) Option {
	return func(c *Catalog) {
		if tag != "" {
			c.lang = tag
		}
	}
}

// Open connects to the configured store, bootstraps it if needed and returns
// the ready catalog.
func Open(cfg *config.Config, opts ...Option) (*Catalog, error) {
	opts = append([]Option{WithLanguage(cfg.Language)}, opts...)
	c := newCatalog(osfs.New(cfg.BaseDir), cfg.BaseDir, opts...)

	db, err := database.Open(cfg.DSN(), c.logger)
	if err != nil {
		return nil, api.Storage("open", err)
	}
	c.db = db
	c.ownsDB = true
	if c.boot, err = c.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an open database and a content filesystem. root is the display
// form of the content root. EnsureSchema is not run.
func New(db *database.DB, fsys billy.Filesystem, root string, opts ...Option) (*Catalog, error) {
	if db == nil || fsys == nil {
		return nil, fmt.Errorf("catalog: database and filesystem are required")
	}
	c := newCatalog(fsys, root, opts...)
	c.db = db
	return c, nil
}

func newCatalog(fsys billy.Filesystem, root string, opts ...Option) *Catalog {
	c := &Catalog{
		fs:     fsys,
		root:   root,
		lang:   config.DefaultLanguage,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the connection pool when the catalog opened it.
func (c *Catalog) Close() error {
	if !c.ownsDB {
		return nil
	}
	return c.db.Close()
}

// Bootstrap reports what the EnsureSchema call made by Open did. It is the
// zero value for catalogs built with New.
func (c *Catalog) Bootstrap() Bootstrap { return c.boot }

// Root returns the content root the catalog indexes.
func (c *Catalog) Root() string { return c.root }

// Session returns a new session scoped to lang.
func (c *Catalog) Session(lang string) *Session {
	return &Session{c: c, lang: lang}
}

// DefaultSession returns a session in the configured language.
func (c *Catalog) DefaultSession() *Session {
	return c.Session(c.lang)
}

// Content reads the content file of a.
func (c *Catalog) Content(a *Article) ([]byte, error) {
	raw, err := util.ReadFile(c.fs, a.File)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", a.File, err)
	}
	return raw, nil
}

// CategoryLanguages lists the language tags a category has titles for.
func (c *Catalog) CategoryLanguages(id int64) ([]string, error) {
	return c.languages("category languages", `SELECT lang FROM categories_data WHERE id = ? ORDER BY lang`, id)
}

// ArticleLanguages lists the language tags an article is available in.
func (c *Catalog) ArticleLanguages(id int64) ([]string, error) {
	return c.languages("article languages", `SELECT lang FROM articles_data WHERE id = ? ORDER BY lang`, id)
}

func (c *Catalog) languages(op, query string, id int64) ([]string, error) {
	c.metrics.ObserveQuery(op)
	rows, err := c.db.Query(c.db.Dialect.Rebind(query), id)
	if err != nil {
		return nil, api.Storage(op, err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, api.Storage(op, err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, api.Storage(op, err)
	}
	return tags, nil
}
