package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Create the store and index the content tree if it was never bootstrapped",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer done()

		out := cmd.OutOrStdout()
		b := c.Bootstrap()
		if b.Migrated {
			_, _ = fmt.Fprintln(out, "Schema created.")
		}
		if !b.Ingested {
			_, _ = fmt.Fprintf(out, "Store already indexed; %s left untouched.\n", c.Root())
			return nil
		}
		_, _ = fmt.Fprintf(out, "Indexed %s (run %s): %d categories, %d articles, %d language rows, %d skipped directories.\n",
			c.Root(), b.RunID, b.Stats.Categories, b.Stats.Articles, b.Stats.LanguageRows, b.Stats.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
