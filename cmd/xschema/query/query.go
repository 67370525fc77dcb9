package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/fatih/color"
	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/cmd/internal"
	"github.com/kcmvp/xschema/sqlx"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	whereClient internal.ClientFlags
	quick       string
	items       []string
	params      []string
	run         bool
)

// WhereCmd prints the where clause of a table for a filter and a client.
var WhereCmd = &cobra.Command{
	Use:   "where <table>",
	Short: "Print the where clause a filter builds for a client.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := internal.SessionOf(cmd)
		t, err := s.Table(args[0])
		if err != nil {
			return err
		}
		cc, err := whereClient.Context()
		if err != nil {
			return err
		}
		fm := xschema.FilterModel{QuickFilter: quick}
		literal, err := internal.ParsePairs(items)
		if err != nil {
			return err
		}
		for _, k := range xschema.Row(literal).Keys() {
			fm.Items = append(fm.Items, xschema.FilterItem{Member: k, Value: literal[k]})
		}
		if fm.Params, err = internal.ParsePairs(params); err != nil {
			return err
		}
		where, err := t.CalculateWhereClause(cmd.Context(), xschema.WhereInput{Filter: fm, Context: cc})
		if err != nil {
			return err
		}
		query, values, err := sqlx.SelectSQL(sqlx.Query{Table: t, Where: where})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		color.New(color.FgCyan).Fprintln(out, query)
		fmt.Fprintf(out, "args: %v\n", values)
		if !run {
			return nil
		}
		db, ok := s.DB.Get()
		if !ok {
			return errors.New("--run requires --db")
		}
		rows, err := sqlx.Select(cmd.Context(), db, sqlx.Query{Table: t, Where: where})
		if err != nil {
			return err
		}
		for _, row := range rows {
			info := t.RowInfo(row)
			fmt.Fprintf(out, "%v\t%s\n", row[t.PrimaryKey()], info.Name)
		}
		fmt.Fprintf(out, "%d rows\n", len(rows))
		return nil
	},
}

var (
	validateClient internal.ClientFlags
	rowJSON        string
	storedJSON     string
	update         bool
)

// ValidateCmd runs a JSON row through authorization, validation and diffing.
var ValidateCmd = &cobra.Command{
	Use:   "validate <table>",
	Short: "Authorize, validate and diff a JSON row against a table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := internal.SessionOf(cmd)
		t, err := s.Table(args[0])
		if err != nil {
			return err
		}
		cc, err := validateClient.Context()
		if err != nil {
			return err
		}
		client, err := xschema.RowFromJSON(rowJSON).Get()
		if err != nil {
			return fmt.Errorf("--row: %w", err)
		}
		mode := lo.Ternary(update, xschema.ModeUpdate, xschema.ModeNew)
		var stored xschema.Row
		if update {
			if stored, err = xschema.RowFromJSON(storedJSON).Get(); err != nil {
				return fmt.Errorf("--stored: %w", err)
			}
		}
		out := cmd.OutOrStdout()
		res, err := t.PrepareMutation(stored, client, mode, cc)
		if errors.Is(err, xschema.ErrValidation) {
			red := color.New(color.FgRed)
			for _, k := range slices.Sorted(maps.Keys(res.Errors)) {
				red.Fprintf(out, "%s: %s\n", k, res.Errors[k])
			}
			return err
		}
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(out, "valid, %d changes\n", len(res.ChangeSet))
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(lo.Map(res.ChangeSet, func(m string, _ int) map[string]any {
			return map[string]any{"member": m, "value": res.Changes[m]}
		}))
	},
}

func init() {
	whereClient.Bind(WhereCmd)
	WhereCmd.Flags().StringVarP(&quick, "quick", "q", "", "quick filter text")
	WhereCmd.Flags().StringArrayVar(&items, "item", nil, "literal member=value condition, value null matches null")
	WhereCmd.Flags().StringArrayVar(&params, "param", nil, "parameterized filter key=value")
	WhereCmd.Flags().BoolVar(&run, "run", false, "execute the query against the database (requires --db)")

	validateClient.Bind(ValidateCmd)
	ValidateCmd.Flags().StringVar(&rowJSON, "row", "", "client row as a JSON object")
	ValidateCmd.Flags().StringVar(&storedJSON, "stored", "{}", "stored row as a JSON object, used with --update")
	ValidateCmd.Flags().BoolVar(&update, "update", false, "validate an update of --stored instead of an insert")
	_ = ValidateCmd.MarkFlagRequired("row")
}
