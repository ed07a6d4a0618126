package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"mit.edu/dsg/minidb"
	"mit.edu/dsg/minidb/execution"
)

// project narrows it to the comma separated columns, resolved by name.
func project(it execution.DbIterator, columns string) (execution.DbIterator, error) {
	var fields []int
	for _, name := range strings.Split(columns, ",") {
		f, err := execution.ResolveField(it.Descriptor(), strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return execution.NewProject(it, fields)
}

// orderBy sorts it by a comma separated list of "column [asc|desc]".
func orderBy(it execution.DbIterator, spec string) (execution.DbIterator, error) {
	var keys []execution.SortKey
	for _, part := range strings.Split(spec, ",") {
		words := strings.Fields(part)
		if len(words) == 0 || len(words) > 2 {
			return nil, fmt.Errorf("invalid sort key %q", part)
		}
		f, err := execution.ResolveField(it.Descriptor(), words[0])
		if err != nil {
			return nil, err
		}
		key := execution.SortKey{Field: f}
		if len(words) == 2 {
			switch strings.ToLower(words[1]) {
			case "asc":
			case "desc":
				key.Descending = true
			default:
				return nil, fmt.Errorf("invalid sort direction %q", words[1])
			}
		}
		keys = append(keys, key)
	}
	return execution.NewOrderBy(it, keys)
}

// buildScan returns a scan of table, filtered by where when it is set.
func buildScan(db *minidb.Database, ctx *execution.ExecutorContext, table, alias, where string) (execution.DbIterator, error) {
	scan, err := db.Scan(ctx, table, alias)
	if err != nil {
		return nil, err
	}
	if where == "" {
		return scan, nil
	}
	pred, err := execution.ParsePredicate(scan.Descriptor(), where)
	if err != nil {
		return nil, err
	}
	return execution.NewFilter(pred, scan)
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		alias   string
		where   string
		sortBy  string
		columns string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "scan <table>",
		Short: "Print the rows of a table",
		Example: `  minidb scan people
  minidb scan people --alias p --where "age >= 30"
  minidb scan people --columns name,age --order-by "age desc" --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			it, err := buildScan(db, db.Begin(), args[0], alias, where)
			if err != nil {
				return err
			}
			if sortBy != "" {
				if it, err = orderBy(it, sortBy); err != nil {
					return err
				}
			}
			if columns != "" {
				if it, err = project(it, columns); err != nil {
					return err
				}
			}
			if limit >= 0 {
				if it, err = execution.NewLimit(it, limit); err != nil {
					return err
				}
			}
			if err := it.Open(); err != nil {
				return err
			}
			defer it.Close()
			return printIterator(cmd.OutOrStdout(), opts.output, it)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Prefix for the output column names (default: table name)")
	cmd.Flags().StringVar(&where, "where", "", `Filter as "field op value", e.g. "age >= 30"`)
	cmd.Flags().StringVar(&sortBy, "order-by", "", `Sort keys as "column [asc|desc], ..."`)
	cmd.Flags().StringVar(&columns, "columns", "", "Comma separated columns to print (default: all)")
	cmd.Flags().IntVar(&limit, "limit", -1, "Print at most this many rows")
	return cmd
}
