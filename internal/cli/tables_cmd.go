package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTablesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			tables := db.Tables()
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), tables)
			}
			rows := make([][]string, len(tables))
			for i, t := range tables {
				cols := make([]string, len(t.Columns))
				for j, c := range t.Columns {
					cols[j] = c.Name + " " + c.Type
				}
				rows[i] = []string{t.Name, fmt.Sprint(t.Oid), t.PrimaryKey, fmt.Sprint(t.NumPages), strings.Join(cols, ", ")}
			}
			return printTable(cmd.OutOrStdout(), []string{"NAME", "ID", "PK", "PAGES", "SCHEMA"}, rows)
		},
	}
}
