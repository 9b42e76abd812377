package catalog

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/lectern/api"
	"github.com/agentic-research/lectern/internal/config"
	"github.com/agentic-research/lectern/internal/database"
)

// sampleTree is walked as: about, help, news, news/launch, news/local,
// news/local/flood.
var sampleTree = map[string]string{
	"/about/article.json":            `{"languages": {"en": {"title": "About", "file": "index.md"}}}`,
	"/about/index.md":                "about us\n",
	"/help/category.json":            `{"en": "Help", "pt": "Ajuda"}`,
	"/news/category.json":            `{"id": "news", "languages": {"en": "News", "pt": "Notícias"}}`,
	"/news/launch/article.json":      launchDescriptor,
	"/news/launch/en.md":             "# Launch\n",
	"/news/launch/pt.md":             "# Lançamento\n",
	"/news/local/category.json":      `{"en": "Local"}`,
	"/news/local/flood/article.json": `{"author": "bruno", "published": "2023-05-01", "languages": {"en": {"title": "Flood", "file": "en.md"}}}`,
	"/news/local/flood/en.md":        "# Flood\n",
}

const launchDescriptor = `{
	"id":        "launch",
	"author":    "ana",
	"published": "2024-01-10T08:00:00Z",
	"edited":    "2024-01-11T08:00:00Z",
	"languages": {
		"en": {"title": "Launch", "description": "We launched", "file": "en.md", "keywords": "launch, news,"},
		"pt": {"title": "Lançamento", "description": "Lançamos", "file": "pt.md"}
	}
}`

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func writeTree(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, fs.MkdirAll(path.Dir(name), 0o755))
		require.NoError(t, util.WriteFile(fs, name, []byte(body), 0o644))
	}
}

func openDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "lectern.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newCatalogT(t *testing.T, db *database.DB, fs billy.Filesystem, opts ...Option) *Catalog {
	t.Helper()
	opts = append([]Option{WithClock(clock)}, opts...)
	c, err := New(db, fs, "memfs", opts...)
	require.NoError(t, err)
	return c
}

// bootstrapped returns a catalog over files with ingestion completed.
func bootstrapped(t *testing.T, files map[string]string, opts ...Option) *Catalog {
	t.Helper()
	fs := memfs.New()
	writeTree(t, fs, files)
	c := newCatalogT(t, openDB(t), fs, opts...)
	_, err := c.EnsureSchema()
	require.NoError(t, err)
	return c
}

func count(t *testing.T, c *Catalog, table string) int {
	t.Helper()
	var n int
	require.NoError(t, c.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, memfs.New(), "x")
	assert.Error(t, err)
}

func TestEnsureSchemaBootstrapsOnce(t *testing.T) {
	db := openDB(t)
	fs := memfs.New()
	writeTree(t, fs, sampleTree)
	c := newCatalogT(t, db, fs)

	first, err := c.EnsureSchema()
	require.NoError(t, err)
	assert.True(t, first.Migrated)
	assert.True(t, first.Ingested)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, api.IngestStats{Categories: 3, Articles: 3, LanguageRows: 9}, first.Stats)

	second, err := c.EnsureSchema()
	require.NoError(t, err)
	assert.Equal(t, Bootstrap{}, second)

	// content added after bootstrap is not picked up, even by a new catalog
	writeTree(t, fs, map[string]string{"/late/article.json": `{"languages": {"en": {"title": "Late", "file": "x"}}}`})
	again := newCatalogT(t, db, fs)
	third, err := again.EnsureSchema()
	require.NoError(t, err)
	assert.False(t, third.Ingested)

	assert.Equal(t, 3, count(t, c, "categories_indexes"))
	assert.Equal(t, 3, count(t, c, "articles_indexes"))
	assert.Equal(t, 1, count(t, c, "bootstrap"))
	_, err = again.Session("en").ArticleByName("late")
	assert.ErrorIs(t, err, api.ErrNotFound)

	var runID string
	require.NoError(t, db.QueryRow("SELECT run_id FROM bootstrap").Scan(&runID))
	assert.Equal(t, first.RunID, runID)
}

func TestEnsureSchemaRollsBackOnDescriptorError(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		fixed  map[string]string
		target error
	}{
		{
			name:  "malformed article",
			files: map[string]string{
				"/good/category.json":    `{"en": "Good"}`,
				"/good/bad/article.json": `{"languages": {"en": {"title": "no file"`,
			},
			fixed: map[string]string{
				"/good/bad/article.json": `{"languages": {"en": {"title": "now fine", "file": "f.md"}}}`,
			},
		},
		{
			name:  "explicit duplicate name",
			files: map[string]string{
				"/a/category.json": `{"id": "same", "en": "A"}`,
				"/b/category.json": `{"id": "same", "en": "B"}`,
			},
			fixed: map[string]string{
				"/b/category.json": `{"id": "other", "en": "B"}`,
			},
			target: api.ErrDuplicateName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memfs.New()
			writeTree(t, fs, tt.files)
			c := newCatalogT(t, openDB(t), fs)

			b, err := c.EnsureSchema()
			require.Error(t, err)
			var de *api.DescriptorError
			require.True(t, errors.As(err, &de), "got %T: %v", err, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.True(t, b.Migrated)
			assert.False(t, b.Ingested)

			assert.Zero(t, count(t, c, "categories_indexes"))
			assert.Zero(t, count(t, c, "categories_data"))
			assert.Zero(t, count(t, c, "articles_indexes"))
			assert.Zero(t, count(t, c, "bootstrap"))

			writeTree(t, fs, tt.fixed)
			b, err = c.EnsureSchema()
			require.NoError(t, err)
			assert.False(t, b.Migrated, "schema survives the rolled back pass")
			assert.True(t, b.Ingested)
			assert.Equal(t, 1, count(t, c, "bootstrap"))
		})
	}
}

func TestEnsureSchemaSkipsUnreadableDirectory(t *testing.T) {
	base := memfs.New()
	writeTree(t, base, map[string]string{
		"/locked/category.json":  `{"en": "Locked"}`,
		"/locked/a/article.json": `{"languages": {"en": {"title": "A", "file": "a.md"}}}`,
		"/open/category.json":    `{"en": "Open"}`,
	})
	c := newCatalogT(t, openDB(t), lockedFS{Filesystem: base, locked: "/locked"})

	b, err := c.EnsureSchema()
	require.NoError(t, err)
	assert.Equal(t, 1, b.Stats.Skipped)
	assert.Equal(t, 1, b.Stats.Categories)

	cats, err := Collect(c.Session("en").Categories(0))
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Open", cats[0].Title)
}

// lockedFS refuses to list or stat inside one directory.
type lockedFS struct {
	billy.Filesystem
	locked string
}

func (f lockedFS) ReadDir(p string) ([]os.FileInfo, error) {
	if p == f.locked {
		return nil, os.ErrPermission
	}
	return f.Filesystem.ReadDir(p)
}

func (f lockedFS) Stat(p string) (os.FileInfo, error) {
	if path.Dir(p) == f.locked {
		return nil, os.ErrPermission
	}
	return f.Filesystem.Stat(p)
}

func TestOpenFromConfig(t *testing.T) {
	dir := t.TempDir()
	content := filepath.Join(dir, "content")
	for name, body := range sampleTree {
		p := filepath.Join(content, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	cfg := &config.Config{
		Server:   "sqlite:" + filepath.Join(dir, "store.db"),
		BaseDir:  content,
		Language: "pt",
	}

	c, err := Open(cfg)
	require.NoError(t, err)
	assert.Equal(t, content, c.Root())
	assert.True(t, c.Bootstrap().Ingested)

	s := c.DefaultSession()
	assert.Equal(t, "pt", s.Language())
	news, err := s.CategoryByName("news")
	require.NoError(t, err)
	assert.Equal(t, "Notícias", news.Title)

	launch, err := s.ArticleByName("launch")
	require.NoError(t, err)
	body, err := c.Content(launch)
	require.NoError(t, err)
	assert.Equal(t, "# Lançamento\n", string(body))
	require.NoError(t, c.Close())

	// reopening finds the bootstrapped store
	c, err = Open(cfg)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	assert.False(t, c.Bootstrap().Ingested)
	assert.Equal(t, 3, count(t, c, "articles_indexes"))
}

func TestOpenBadServer(t *testing.T) {
	_, err := Open(&config.Config{Server: "sqlite:" + filepath.Join(t.TempDir(), "missing", "dir", "x.db"), BaseDir: t.TempDir()})
	var se *api.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestLanguageRoundTrip(t *testing.T) {
	c := bootstrapped(t, sampleTree)

	en := c.Session("en")
	pt := c.Session("pt")

	news, err := en.CategoryByName("news")
	require.NoError(t, err)
	assert.Equal(t, "News", news.Title)
	assert.Equal(t, "en", news.Lang)

	ptNews, err := pt.Category(news.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notícias", ptNews.Title)

	_, err = pt.CategoryByName("local")
	assert.ErrorIs(t, err, api.ErrNotFound, "local has no pt title")

	ptArticles, err := Collect(pt.Articles(news.ID, ListOptions{}))
	require.NoError(t, err)
	require.Len(t, ptArticles, 1)
	assert.Equal(t, "Lançamento", ptArticles[0].Title)
	assert.Equal(t, "Lançamos", ptArticles[0].Description)

	de := c.Session("de")
	cats, err := Collect(de.Categories(0))
	require.NoError(t, err)
	assert.Empty(t, cats)
	_, err = de.ArticleByName("launch")
	assert.ErrorIs(t, err, api.ErrNotFound)

	langs, err := c.ArticleLanguages(ptArticles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "pt"}, langs)

	local, err := en.CategoryByName("local")
	require.NoError(t, err)
	langs, err = c.CategoryLanguages(local.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, langs)
}

func TestSessionLanguageFollowsAccessors(t *testing.T) {
	c := bootstrapped(t, sampleTree, WithLanguage("pt"))
	assert.Equal(t, "pt", c.DefaultSession().Language())

	s := c.Session("en")
	launch, err := s.ArticleByName("launch")
	require.NoError(t, err)
	assert.Same(t, c, s.Catalog())

	s.SetLanguage("pt")
	cat, err := launch.Category()
	require.NoError(t, err)
	assert.Equal(t, "Notícias", cat.Title)
}

func TestArticleFields(t *testing.T) {
	c := bootstrapped(t, sampleTree)
	s := c.Session("en")

	launch, err := s.ArticleByName("launch")
	require.NoError(t, err)
	assert.Equal(t, "ana", launch.Author)
	assert.Equal(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC), launch.Published)
	assert.Equal(t, time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC), launch.Edited)
	assert.Equal(t, "news/launch", launch.Path)
	assert.Equal(t, "news/launch/en.md", launch.File)
	assert.Equal(t, []string{"launch", "news"}, launch.KeywordList())

	body, err := c.Content(launch)
	require.NoError(t, err)
	assert.Equal(t, "# Launch\n", string(body))

	cat, err := launch.Category()
	require.NoError(t, err)
	assert.Equal(t, "news", cat.Name)

	about, err := s.ArticleByName("about")
	require.NoError(t, err, "defaulted name is the folder basename")
	assert.Zero(t, about.CategoryID)
	assert.Equal(t, fixedNow, about.Published)
	assert.Equal(t, fixedNow, about.Edited)
	assert.Empty(t, about.KeywordList())
	_, err = about.Category()
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = s.Article(9999)
	assert.ErrorIs(t, err, api.ErrNotFound)

	about.File = "about/missing.md"
	_, err = c.Content(about)
	assert.Error(t, err)
}

func TestMetricsExported(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := bootstrapped(t, sampleTree, WithRegisterer(reg))
	_, err := c.Session("en").CategoryByName("news")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			values[mf.GetName()] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 3.0, values["lectern_ingest_articles_total"])
	assert.Equal(t, 3.0, values["lectern_ingest_categories_total"])
	assert.Equal(t, 1.0, values["lectern_ingest_runs_total"])
	assert.GreaterOrEqual(t, values["lectern_catalog_queries_total"], 1.0)
}
