package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoadCmd(opts *rootOptions) *cobra.Command {
	var header bool

	cmd := &cobra.Command{
		Use:   "load <table> <csv-file>",
		Short: "Replace the rows of a table with the contents of a CSV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			pages, err := db.LoadCSV(args[0], f, header)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"table": args[0], "pages": pages})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "loaded %s: %d pages\n", args[0], pages)
			return nil
		},
	}

	cmd.Flags().BoolVar(&header, "header", false, "Skip the first line of the file")
	return cmd
}
