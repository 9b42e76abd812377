package ingest

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentic-research/lectern/api"
)

// Root is the walk path of the content root inside the filesystem.
const Root = "/"

// Engine walks a content tree and feeds categories and articles to a Target.
type Engine struct {
	FS     billy.Filesystem
	Target Target
	Logger *zap.Logger
	// Now stamps articles without published/edited.
	Now func() time.Time

	runID string
	stats api.IngestStats
	// defaulted holds names taken from folder names, which explicit ids outrank.
	defaulted map[Kind]map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.Now = now
		}
	}
}

func WithRunID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.runID = id
		}
	}
}

func NewEngine(fsys billy.Filesystem, target Target, opts ...Option) *Engine {
	e := &Engine{
		FS:     fsys,
		Target: target,
		Logger: zap.NewNop(),
		Now:    time.Now,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.defaulted = map[Kind]map[string]bool{KindCategory: {}, KindArticle: {}}
	e.Logger = e.Logger.With(zap.String("run", e.runID))
	return e
}

// RunID identifies this ingestion pass in logs and in the bootstrap marker.
func (e *Engine) RunID() string { return e.runID }

// Stats returns the counts accumulated so far.
func (e *Engine) Stats() api.IngestStats { return e.stats }

// Ingest processes dir and everything below it. Entries found directly in
// dir are attached to parent (0 for root).
//
// A folder holding article.json is a leaf. A folder holding category.json
// becomes the parent of its subfolders. Any other folder is transparent.
// Unreadable folders are skipped; descriptor and storage errors abort.
func (e *Engine) Ingest(dir string, parent int64) error {
	if e.isFile(e.FS.Join(dir, api.ArticleFile)) {
		_, err := e.addArticle(dir, parent)
		return err
	}
	if e.isFile(e.FS.Join(dir, api.CategoryFile)) {
		id, err := e.addCategory(dir, parent)
		if err != nil {
			return err
		}
		parent = id
	}

	entries, err := e.FS.ReadDir(dir)
	if err != nil {
		e.stats.Skipped++
		e.Logger.Warn("skipping unreadable directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "." || entry.Name() == ".." {
			continue
		}
		if err := e.Ingest(e.FS.Join(dir, entry.Name()), parent); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) isFile(p string) bool {
	info, err := e.FS.Stat(p)
	return err == nil && !info.IsDir()
}

func (e *Engine) readDescriptor(p string) ([]byte, error) {
	raw, err := util.ReadFile(e.FS, p)
	if err != nil {
		return nil, descriptorErr(relPath(p), "", err)
	}
	return raw, nil
}

func (e *Engine) addCategory(dir string, parent int64) (int64, error) {
	file := e.FS.Join(dir, api.CategoryFile)
	raw, err := e.readDescriptor(file)
	if err != nil {
		return 0, err
	}
	d, err := ParseCategory(relPath(file), raw)
	if err != nil {
		return 0, err
	}

	rel := relPath(dir)
	name, err := e.resolveName(KindCategory, d.ID, rel, relPath(file))
	if err != nil {
		return 0, err
	}
	id, err := e.Target.AddCategory(CategoryRecord{
		Parent: parent,
		Name:   name,
		Path:   rel,
		Titles: d.Titles,
	})
	if err != nil {
		return 0, err
	}

	e.stats.Categories++
	e.stats.LanguageRows += len(d.Titles)
	e.Logger.Debug("added category",
		zap.Int64("id", id),
		zap.Int64("parent", parent),
		zap.String("name", name),
		zap.String("path", rel))
	return id, nil
}

func (e *Engine) addArticle(dir string, category int64) (int64, error) {
	file := e.FS.Join(dir, api.ArticleFile)
	raw, err := e.readDescriptor(file)
	if err != nil {
		return 0, err
	}
	d, err := ParseArticle(relPath(file), raw)
	if err != nil {
		return 0, err
	}

	rel := relPath(dir)
	name, err := e.resolveName(KindArticle, d.ID, rel, relPath(file))
	if err != nil {
		return 0, err
	}

	now := e.Now()
	if d.Published.IsZero() {
		d.Published = now
	}
	if d.Edited.IsZero() {
		d.Edited = now
	}

	langs := make(map[string]api.ArticleLanguage, len(d.Languages))
	for _, tag := range sortedKeys(d.Languages) {
		l := d.Languages[tag]
		if l.File, err = contentFile(relPath(file), tag, rel, l.File); err != nil {
			return 0, err
		}
		langs[tag] = l
	}

	id, err := e.Target.AddArticle(ArticleRecord{
		Category:  category,
		Name:      name,
		Author:    d.Author,
		Published: d.Published,
		Edited:    d.Edited,
		Path:      rel,
		Languages: langs,
	})
	if err != nil {
		return 0, err
	}

	e.stats.Articles++
	e.stats.LanguageRows += len(langs)
	e.Logger.Debug("added article",
		zap.Int64("id", id),
		zap.Int64("category", category),
		zap.String("name", name),
		zap.String("path", rel))
	return id, nil
}

// resolveName picks the stable name of an entry. An explicit id must not
// repeat another explicit id; when it matches a name an earlier entry only
// got from its folder, that entry loses the name. A defaulted name (the
// folder name) is dropped when already taken.
func (e *Engine) resolveName(kind Kind, explicit, rel, file string) (string, error) {
	if explicit != "" {
		taken, err := e.Target.NameTaken(kind, explicit)
		if err != nil {
			return "", err
		}
		if taken && !e.defaulted[kind][explicit] {
			return "", descriptorErr(file, "id", fmt.Errorf("%w: %q", api.ErrDuplicateName, explicit))
		}
		if taken {
			if err := e.Target.ReleaseName(kind, explicit); err != nil {
				return "", err
			}
			delete(e.defaulted[kind], explicit)
			e.Logger.Warn("explicit id replaces a default name",
				zap.String("kind", kind.String()),
				zap.String("name", explicit),
				zap.String("path", rel))
		}
		return explicit, nil
	}

	base := path.Base(rel)
	if rel == "." || base == "" {
		return "", nil
	}
	taken, err := e.Target.NameTaken(kind, base)
	if err != nil {
		return "", err
	}
	if taken {
		e.Logger.Warn("default name already taken, storing without a name",
			zap.String("kind", kind.String()),
			zap.String("name", base),
			zap.String("path", rel))
		return "", nil
	}
	e.defaulted[kind][base] = true
	return base, nil
}

// contentFile resolves a language file against the article folder. The
// result must stay inside the content root.
func contentFile(descriptor, tag, rel, file string) (string, error) {
	joined := path.Join(rel, file)
	if path.IsAbs(file) || joined == ".." || strings.HasPrefix(joined, "../") {
		return "", descriptorErr(descriptor, "languages."+tag+".file",
			fmt.Errorf("%q resolves outside the content root", file))
	}
	return joined, nil
}

// relPath turns a walk path into the stored form: slash separated, relative
// to the content root, "." for the root itself.
func relPath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
	if p == "" {
		return "."
	}
	return p
}
