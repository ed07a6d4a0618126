package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"mit.edu/dsg/minidb/execution"
)

func newAggregateCmd(opts *rootOptions) *cobra.Command {
	var (
		op      string
		field   string
		groupBy string
		where   string
	)

	cmd := &cobra.Command{
		Use:   "aggregate <table>",
		Short: "Compute count, sum, min, max or avg of an int column",
		Example: `  minidb aggregate people --op avg --field age
  minidb aggregate people --op count --field id --group-by city --where "age > 18"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aggOp, err := execution.ParseAggOp(op)
			if err != nil {
				return err
			}
			if field == "" {
				return fmt.Errorf("--field is required")
			}

			db, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			child, err := buildScan(db, db.Begin(), args[0], "", where)
			if err != nil {
				return err
			}
			aField, err := execution.ResolveField(child.Descriptor(), field)
			if err != nil {
				return err
			}
			gbField := execution.NoGrouping
			if groupBy != "" {
				if gbField, err = execution.ResolveField(child.Descriptor(), groupBy); err != nil {
					return err
				}
			}

			agg, err := execution.NewAggregate(child, aField, gbField, aggOp)
			if err != nil {
				return err
			}
			if err := agg.Open(); err != nil {
				return err
			}
			defer agg.Close()
			return printIterator(cmd.OutOrStdout(), opts.output, agg)
		},
	}

	cmd.Flags().StringVar(&op, "op", "count", "Aggregate operator (count, sum, min, max, avg)")
	cmd.Flags().StringVar(&field, "field", "", "Int column to aggregate")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "Column to group by")
	cmd.Flags().StringVar(&where, "where", "", `Filter applied before aggregating, e.g. "age >= 30"`)
	return cmd
}
