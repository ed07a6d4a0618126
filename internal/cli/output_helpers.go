package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/execution"
	"mit.edu/dsg/minidb/storage"
)

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, columns []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func columnNames(desc *storage.TupleDesc) []string {
	names := make([]string, desc.NumFields())
	for i := range names {
		names[i] = desc.FieldName(i)
	}
	return names
}

// printIterator drains an open iterator in the requested format. JSON output is one object per
// tuple keyed by field name.
func printIterator(w io.Writer, format string, it execution.DbIterator) error {
	tuples, err := execution.Collect(it)
	if err != nil {
		return err
	}
	columns := columnNames(it.Descriptor())

	if format == "json" {
		objs := make([]map[string]any, len(tuples))
		for i := range tuples {
			obj := make(map[string]any, len(columns))
			for j, name := range columns {
				v := tuples[i].GetValue(j)
				if v.Type() == common.IntType {
					obj[name] = v.IntValue()
				} else {
					obj[name] = v.StringValue()
				}
			}
			objs[i] = obj
		}
		return printJSON(w, objs)
	}

	rows := make([][]string, len(tuples))
	for i := range tuples {
		row := make([]string, len(columns))
		for j := range columns {
			row[j] = tuples[i].GetValue(j).String()
		}
		rows[i] = row
	}
	return printTable(w, columns, rows)
}
