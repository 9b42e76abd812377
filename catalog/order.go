package catalog

import "fmt"

// Column is a sortable article column.
type Column int

const (
	// Unordered keeps insertion order.
	Unordered Column = iota
	ByID
	ByTitle
	ByAuthor
	ByPublished
	ByEdited
)

var columnNames = map[Column]string{
	ByID:        "id",
	ByTitle:     "title",
	ByAuthor:    "author",
	ByPublished: "published",
	ByEdited:    "edited",
}

func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	if c == Unordered {
		return "unordered"
	}
	return fmt.Sprintf("Column(%d)", int(c))
}

// ParseColumn maps a column name to its Column.
func ParseColumn(name string) (Column, error) {
	if name == "" || name == "unordered" {
		return Unordered, nil
	}
	for c, n := range columnNames {
		if n == name {
			return c, nil
		}
	}
	return Unordered, fmt.Errorf("unknown order column %q", name)
}

// Order sorts on one of the known columns.
type Order struct {
	Column Column
	Desc   bool
}

// ListOptions paginates article listings. Zero Limit means no limit and
// zero Offset means start at the first row.
type ListOptions struct {
	Order  Order
	Limit  int
	Offset int
}

// clause renders ORDER BY. Ties and Unordered fall back to id.
func (o Order) clause() (string, error) {
	if o.Column == Unordered || o.Column == ByID {
		if o.Desc && o.Column == ByID {
			return " ORDER BY id DESC", nil
		}
		return " ORDER BY id", nil
	}
	name, ok := columnNames[o.Column]
	if !ok {
		return "", fmt.Errorf("unknown order column %d", int(o.Column))
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return " ORDER BY " + name + " " + dir + ", id", nil
}
