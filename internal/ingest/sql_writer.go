package ingest

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agentic-research/lectern/api"
	"github.com/agentic-research/lectern/internal/database"
)

// TimeLayout is the stored form of published/edited. UTC RFC 3339 keeps
// lexical order equal to chronological order.
const TimeLayout = time.RFC3339

// SQLWriter implements Target on top of a caller-owned transaction.
// The caller commits or rolls back; the writer only closes its statements.
type SQLWriter struct {
	tx      *sql.Tx
	dialect database.Dialect

	stmtCategory     *sql.Stmt
	stmtCategoryData *sql.Stmt
	stmtArticle      *sql.Stmt
	stmtArticleData  *sql.Stmt
}

// NewSQLWriter prepares the insert statements inside tx.
func NewSQLWriter(tx *sql.Tx, dialect database.Dialect) (*SQLWriter, error) {
	w := &SQLWriter{tx: tx, dialect: dialect}

	prepare := func(dst **sql.Stmt, query string) error {
		stmt, err := tx.Prepare(dialect.Rebind(query))
		if err != nil {
			return api.Storage("prepare", err)
		}
		*dst = stmt
		return nil
	}

	err := errors.Join(
		prepare(&w.stmtCategory, `INSERT INTO categories_indexes (parent, identifier, path) VALUES (?, ?, ?) RETURNING id`),
		prepare(&w.stmtCategoryData, `INSERT INTO categories_data (id, lang, title) VALUES (?, ?, ?)`),
		prepare(&w.stmtArticle, `
			INSERT INTO articles_indexes (category, identifier, author, published, edited, path)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		prepare(&w.stmtArticleData, `
			INSERT INTO articles_data (id, lang, title, description, keywords, file)
			VALUES (?, ?, ?, ?, ?, ?)`),
	)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// AddCategory inserts the index row and one row per language.
func (w *SQLWriter) AddCategory(c CategoryRecord) (int64, error) {
	var id int64
	if err := w.stmtCategory.QueryRow(nullID(c.Parent), nullString(c.Name), c.Path).Scan(&id); err != nil {
		return 0, api.Storage(fmt.Sprintf("insert category %s", c.Path), err)
	}
	for _, lang := range sortedKeys(c.Titles) {
		if _, err := w.stmtCategoryData.Exec(id, lang, c.Titles[lang]); err != nil {
			return 0, api.Storage(fmt.Sprintf("insert category %d language %s", id, lang), err)
		}
	}
	return id, nil
}

// AddArticle inserts the index row and one row per language.
func (w *SQLWriter) AddArticle(a ArticleRecord) (int64, error) {
	var id int64
	err := w.stmtArticle.QueryRow(
		nullID(a.Category),
		nullString(a.Name),
		a.Author,
		a.Published.UTC().Format(TimeLayout),
		a.Edited.UTC().Format(TimeLayout),
		a.Path,
	).Scan(&id)
	if err != nil {
		return 0, api.Storage(fmt.Sprintf("insert article %s", a.Path), err)
	}
	for _, lang := range sortedKeys(a.Languages) {
		l := a.Languages[lang]
		if _, err := w.stmtArticleData.Exec(id, lang, l.Title, l.Description, l.Keywords, l.File); err != nil {
			return 0, api.Storage(fmt.Sprintf("insert article %d language %s", id, lang), err)
		}
	}
	return id, nil
}

// NameTaken looks the name up through the transaction, so rows inserted
// earlier in the same pass are visible.
func (w *SQLWriter) NameTaken(kind Kind, name string) (bool, error) {
	query := `SELECT 1 FROM categories_indexes WHERE identifier = ?`
	if kind == KindArticle {
		query = `SELECT 1 FROM articles_indexes WHERE identifier = ?`
	}
	var one int
	err := w.tx.QueryRow(w.dialect.Rebind(query), name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, api.Storage("lookup "+kind.String()+" name", err)
	}
	return true, nil
}

// ReleaseName sets the identifier of the row holding name to NULL.
func (w *SQLWriter) ReleaseName(kind Kind, name string) error {
	query := `UPDATE categories_indexes SET identifier = NULL WHERE identifier = ?`
	if kind == KindArticle {
		query = `UPDATE articles_indexes SET identifier = NULL WHERE identifier = ?`
	}
	if _, err := w.tx.Exec(w.dialect.Rebind(query), name); err != nil {
		return api.Storage("release "+kind.String()+" name", err)
	}
	return nil
}

// Close releases the prepared statements.
func (w *SQLWriter) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{w.stmtCategory, w.stmtCategoryData, w.stmtArticle, w.stmtArticleData} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	return errors.Join(errs...)
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Interface compliance
var _ Target = (*SQLWriter)(nil)
