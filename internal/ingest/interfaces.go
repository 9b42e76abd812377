package ingest

import (
	"time"

	"github.com/agentic-research/lectern/api"
)

// Kind distinguishes the two entity tables.
type Kind int

const (
	KindCategory Kind = iota
	KindArticle
)

func (k Kind) String() string {
	if k == KindArticle {
		return "article"
	}
	return "category"
}

// CategoryRecord is one category ready to be stored.
type CategoryRecord struct {
	Parent int64 // 0 for root
	Name   string
	Path   string
	Titles map[string]string
}

// ArticleRecord is one article ready to be stored. Language file paths are
// already resolved against Path.
type ArticleRecord struct {
	Category  int64 // 0 for root
	Name      string
	Author    string
	Published time.Time
	Edited    time.Time
	Path      string
	Languages map[string]api.ArticleLanguage
}

// Target receives the rows produced by an Engine. Implementations are
// expected to write within a single transaction owned by the caller.
type Target interface {
	AddCategory(c CategoryRecord) (int64, error)
	AddArticle(a ArticleRecord) (int64, error)
	// NameTaken reports whether a stable name is already used by kind.
	NameTaken(kind Kind, name string) (bool, error)
	// ReleaseName clears name from the entry of kind holding it.
	ReleaseName(kind Kind, name string) error
}
