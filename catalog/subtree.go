package catalog

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/lectern/api"
)

// Subtree returns root followed by every category below it, breadth first,
// walking at most MaxDepth levels. A category reachable twice (which only
// malformed parent data allows) is listed once.
func (c *Catalog) Subtree(root int64) ([]int64, error) {
	if root < 0 || root > math.MaxUint32 {
		return nil, fmt.Errorf("subtree: category id %d out of range", root)
	}
	visited := roaring.New()
	visited.Add(uint32(root))
	ids := []int64{root}

	frontier := []int64{root}
	for depth := 0; depth < MaxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, parent := range frontier {
			children, err := c.children(parent)
			if err != nil {
				return nil, err
			}
			for _, id := range children {
				if id < 0 || id > math.MaxUint32 {
					return nil, fmt.Errorf("subtree: category id %d out of range", id)
				}
				if visited.CheckedAdd(uint32(id)) {
					next = append(next, id)
					ids = append(ids, id)
				}
			}
		}
		frontier = next
	}
	return ids, nil
}

func (c *Catalog) children(parent int64) ([]int64, error) {
	const op = "subtree children"
	c.metrics.ObserveQuery(op)
	rows, err := c.db.Query(c.db.Dialect.Rebind(
		`SELECT id FROM categories_indexes WHERE COALESCE(parent, 0) = ? ORDER BY id`), parent)
	if err != nil {
		return nil, api.Storage(op, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, api.Storage(op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, api.Storage(op, err)
	}
	return ids, nil
}
