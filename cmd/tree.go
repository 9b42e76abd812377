package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/lectern/catalog"
)

var treeOrder string

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the category hierarchy with the articles of each category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := catalog.ParseColumn(treeOrder)
		if err != nil {
			return err
		}
		c, done, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer done()

		opts := catalog.ListOptions{Order: catalog.Order{Column: col}}
		return printTree(cmd.OutOrStdout(), session(c), 0, 0, opts)
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeOrder, "order", "id", "Article order: id, title, author, published or edited")
	rootCmd.AddCommand(treeCmd)
}

// printTree writes the categories under parent, each followed by its own
// articles, then the articles owned by parent itself.
func printTree(w io.Writer, s *catalog.Session, parent int64, depth int, opts catalog.ListOptions) error {
	if depth >= catalog.MaxDepth {
		return fmt.Errorf("category %d: hierarchy deeper than %d", parent, catalog.MaxDepth)
	}
	indent := strings.Repeat("  ", depth)

	for cat, err := range s.Categories(parent) {
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s+ %s\n", indent, label(cat.ID, cat.Name, cat.Title))
		if err := printTree(w, s, cat.ID, depth+1, opts); err != nil {
			return err
		}
	}
	for a, err := range s.Articles(parent, opts) {
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s- %s", indent, label(a.ID, a.Name, a.Title))
		if a.Author != "" {
			_, _ = fmt.Fprintf(w, " by %s", a.Author)
		}
		_, _ = fmt.Fprintf(w, ", %s\n", a.Published.Format("2006-01-02"))
	}
	return nil
}

func label(id int64, name, title string) string {
	if name == "" {
		return fmt.Sprintf("[%d] %s", id, title)
	}
	return fmt.Sprintf("[%d] %s (%s)", id, title, name)
}
