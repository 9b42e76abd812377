package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/agentic-research/lectern/api"
)

// Category is a category as seen in one language.
type Category struct {
	ID int64
	// Parent is 0 for top-level categories.
	Parent int64
	// Name is the stable name; empty when the category has none.
	Name  string
	Path  string
	Lang  string
	Title string

	session *Session
}

const categoryColumns = `id, parent, identifier, path, lang, title`

func (s *Session) scanCategory(scanner rowScanner) (*Category, error) {
	var (
		c      Category
		parent sql.NullInt64
		name   sql.NullString
	)
	if err := scanner.Scan(&c.ID, &parent, &name, &c.Path, &c.Lang, &c.Title); err != nil {
		return nil, err
	}
	c.Parent = parent.Int64
	c.Name = name.String
	c.session = s
	return &c, nil
}

func (s *Session) findCategory(op, where string, arg any) (*Category, error) {
	s.c.metrics.ObserveQuery(op)
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE ` + where + ` AND lang = ?`
	row := s.c.db.QueryRow(s.c.db.Dialect.Rebind(query), arg, s.lang)
	c, err := s.scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, api.Storage(op, err)
	}
	return c, nil
}

// Category returns the category with id in the session language.
func (s *Session) Category(id int64) (*Category, error) {
	c, err := s.findCategory("category", "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("category %d: %w", id, err)
	}
	return c, nil
}

// CategoryByName returns the category with the given stable name.
func (s *Session) CategoryByName(name string) (*Category, error) {
	c, err := s.findCategory("category by name", "identifier = ?", name)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", name, err)
	}
	return c, nil
}

// Categories yields the immediate children of parent (0 for the top level)
// in insertion order.
func (s *Session) Categories(parent int64) iter.Seq2[*Category, error] {
	query := `SELECT ` + categoryColumns + ` FROM categories
		WHERE COALESCE(parent, 0) = ? AND lang = ?
		ORDER BY id`
	return stream(s, "categories", query, []any{parent, s.lang}, s.scanCategory)
}

// ParentCategory returns the parent of c, or api.ErrNotFound for a
// top-level category.
func (c *Category) ParentCategory() (*Category, error) {
	if c.Parent == 0 {
		return nil, fmt.Errorf("parent of category %d: %w", c.ID, api.ErrNotFound)
	}
	return c.session.Category(c.Parent)
}

// Subcategories yields the immediate children of c.
func (c *Category) Subcategories() iter.Seq2[*Category, error] {
	return c.session.Categories(c.ID)
}

// Articles yields the articles directly owned by c.
func (c *Category) Articles(opts ListOptions) iter.Seq2[*Article, error] {
	return c.session.Articles(c.ID, opts)
}

// ArticlesRecursive yields the articles owned by c or any descendant.
func (c *Category) ArticlesRecursive(opts ListOptions) iter.Seq2[*Article, error] {
	return c.session.ArticlesRecursive(c.ID, opts)
}

// Ancestors returns the chain of categories above c, top-level first.
// The walk stops after MaxDepth steps.
func (c *Category) Ancestors() ([]*Category, error) {
	var chain []*Category
	cur := c
	for depth := 0; cur.Parent != 0; depth++ {
		if depth >= MaxDepth {
			return nil, api.Storage("ancestors", fmt.Errorf("category %d: hierarchy deeper than %d", c.ID, MaxDepth))
		}
		p, err := c.session.Category(cur.Parent)
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
		cur = p
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
