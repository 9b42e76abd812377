package catalog

import (
	"time"

	"go.uber.org/zap"

	"github.com/agentic-research/lectern/api"
	"github.com/agentic-research/lectern/internal/ingest"
)

// Bootstrap reports what EnsureSchema did.
type Bootstrap struct {
	// Migrated is set when the schema had to be created.
	Migrated bool
	// Ingested is set when the content tree was indexed by this call.
	Ingested bool
	RunID    string
	Stats    api.IngestStats
}

// EnsureSchema creates the schema when the category listing cannot be
// queried, then indexes the content tree unless a previous pass completed.
// The whole pass is one transaction: on error nothing is kept and a later
// call retries. On a bootstrapped store it does nothing.
func (c *Catalog) EnsureSchema() (Bootstrap, error) {
	var b Bootstrap
	if !c.schemaPresent() {
		if err := c.db.Migrate(c.logger); err != nil {
			return b, api.Storage("migrate", err)
		}
		b.Migrated = true
	}

	done, err := c.bootstrapped()
	if err != nil || done {
		return b, err
	}

	b.RunID, b.Stats, err = c.ingest()
	c.metrics.ObserveIngest(b.Stats, err)
	if err != nil {
		c.logger.Error("content ingestion rolled back", zap.String("run", b.RunID), zap.Error(err))
		return b, err
	}
	b.Ingested = true
	c.logger.Info("content tree ingested",
		zap.String("run", b.RunID),
		zap.String("root", c.root),
		zap.Int("categories", b.Stats.Categories),
		zap.Int("articles", b.Stats.Articles),
		zap.Int("skipped", b.Stats.Skipped))
	return b, nil
}

func (c *Catalog) schemaPresent() bool {
	for _, probe := range []string{
		`SELECT 1 FROM categories LIMIT 1`,
		`SELECT 1 FROM bootstrap LIMIT 1`,
	} {
		if _, err := c.db.Exec(probe); err != nil {
			return false
		}
	}
	return true
}

func (c *Catalog) bootstrapped() (bool, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM bootstrap`).Scan(&n); err != nil {
		return false, api.Storage("read bootstrap marker", err)
	}
	return n > 0, nil
}

func (c *Catalog) ingest() (runID string, stats api.IngestStats, err error) {
	tx, err := c.db.Begin()
	if err != nil {
		return "", stats, api.Storage("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	w, err := ingest.NewSQLWriter(tx, c.db.Dialect)
	if err != nil {
		return "", stats, err
	}
	defer func() { _ = w.Close() }()

	e := ingest.NewEngine(c.fs, w, ingest.WithLogger(c.logger), ingest.WithClock(c.now))
	runID = e.RunID()
	if err = e.Ingest(ingest.Root, 0); err != nil {
		return runID, e.Stats(), err
	}
	stats = e.Stats()

	_, err = tx.Exec(c.db.Dialect.Rebind(`INSERT INTO bootstrap (run_id, root, completed_at) VALUES (?, ?, ?)`),
		runID, c.root, c.now().UTC().Format(time.RFC3339))
	if err != nil {
		return runID, stats, api.Storage("write bootstrap marker", err)
	}
	if err = tx.Commit(); err != nil {
		return runID, stats, api.Storage("commit", err)
	}
	return runID, stats, nil
}
