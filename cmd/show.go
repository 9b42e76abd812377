package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/lectern/catalog"
)

var showContent bool

var categoryCmd = &cobra.Command{
	Use:   "category <id|name>",
	Short: "Print one category with its subcategories and articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer done()

		s := session(c)
		var cat *catalog.Category
		if id, perr := strconv.ParseInt(args[0], 10, 64); perr == nil {
			cat, err = s.Category(id)
		} else {
			cat, err = s.CategoryByName(args[0])
		}
		if err != nil {
			return err
		}
		langs, err := c.CategoryLanguages(cat.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		field(out, "ID", strconv.FormatInt(cat.ID, 10))
		field(out, "Name", cat.Name)
		field(out, "Title", cat.Title)
		field(out, "Path", cat.Path)
		field(out, "Parent", strconv.FormatInt(cat.Parent, 10))
		field(out, "Languages", strings.Join(langs, ", "))

		subs, err := catalog.Collect(cat.Subcategories())
		if err != nil {
			return err
		}
		for _, sub := range subs {
			_, _ = fmt.Fprintf(out, "+ %s\n", label(sub.ID, sub.Name, sub.Title))
		}
		for a, err := range cat.Articles(catalog.ListOptions{Order: catalog.Order{Column: catalog.ByPublished, Desc: true}}) {
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "- %s\n", label(a.ID, a.Name, a.Title))
		}
		return nil
	},
}

var articleCmd = &cobra.Command{
	Use:   "article <id|name>",
	Short: "Print one article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer done()

		s := session(c)
		var a *catalog.Article
		if id, perr := strconv.ParseInt(args[0], 10, 64); perr == nil {
			a, err = s.Article(id)
		} else {
			a, err = s.ArticleByName(args[0])
		}
		if err != nil {
			return err
		}
		langs, err := c.ArticleLanguages(a.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		field(out, "ID", strconv.FormatInt(a.ID, 10))
		field(out, "Name", a.Name)
		field(out, "Title", a.Title)
		field(out, "Description", a.Description)
		field(out, "Author", a.Author)
		field(out, "Published", a.Published.Format(time.RFC3339))
		field(out, "Edited", a.Edited.Format(time.RFC3339))
		field(out, "Category", strconv.FormatInt(a.CategoryID, 10))
		field(out, "File", a.File)
		field(out, "Keywords", strings.Join(a.KeywordList(), ", "))
		field(out, "Languages", strings.Join(langs, ", "))

		if showContent {
			body, err := c.Content(a)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "\n%s", body)
		}
		return nil
	},
}

func init() {
	articleCmd.Flags().BoolVar(&showContent, "content", false, "Also print the content file")
	rootCmd.AddCommand(categoryCmd, articleCmd)
}

func field(w io.Writer, key, value string) {
	if value == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "%-12s %s\n", key+":", value)
}
