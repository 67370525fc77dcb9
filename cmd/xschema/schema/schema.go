package schema

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/cmd/internal"
	"github.com/kcmvp/xschema/sqlx"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

//go:embed resources/drivers.json
var driversJSON []byte

// ErrCheckFailed is returned by the check command when a table has problems.
var ErrCheckFailed = errors.New("schema check failed")

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// TablesCmd lists the registered tables.
var TablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the registered tables.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := internal.SessionOf(cmd)
		tw := table(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tNAME\tFIELDS\tSOFT DELETE\tVISIBILITY")
		for _, t := range s.Registry.Tables() {
			sd := t.SoftDelete().OrEmpty().Column
			vis := lo.TernaryF(t.Visibility().IsPresent(), func() string {
				v := t.Visibility().MustGet()
				return v.OwnerColumn + "/" + v.PermissionColumn
			}, func() string { return "" })
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", t.ID(), t.Name(), len(t.Fields()), dash(sd), dash(vis))
		}
		return tw.Flush()
	},
}

// DescribeCmd prints the fields of a table.
var DescribeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Describe the fields, ordering and permissions of a table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := internal.SessionOf(cmd)
		t, err := s.Table(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		color.New(color.Bold).Fprintf(out, "%s (%s)\n", t.ID(), t.Name())
		tw := table(out)
		fmt.Fprintln(tw, "MEMBER\tKIND\tNULLABLE\tDEFAULT\tLABEL")
		for _, f := range t.Fields() {
			def := lo.TernaryF(f.Default().IsPresent(), func() string { return fmt.Sprint(f.Default().MustGet()) }, func() string { return "" })
			member := lo.Ternary(f.Member() == t.PrimaryKey(), f.Member()+" (pk)", f.Member())
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", member, f.Kind(), f.Nullable(), dash(def), f.Label())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if orders := t.NaturalOrdering(); len(orders) > 0 {
			fmt.Fprintf(out, "order by: %s\n", strings.Join(lo.Map(orders, func(o xschema.Order, _ int) string {
				return o.Member + lo.Ternary(o.Desc, " desc", "")
			}), ", "))
		}
		p := t.Permissions()
		fmt.Fprintf(out, "permissions: view=%s view-own=%s edit=%s edit-own=%s insert=%s\n",
			dash(string(p.View)), dash(string(p.ViewOwn)), dash(string(p.Edit)), dash(string(p.EditOwn)), dash(string(p.Insert)))
		return nil
	},
}

// CheckCmd verifies every table can build its queries and, with --db, that
// its columns exist in storage.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the tables build their queries and match the database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := internal.SessionOf(cmd)
		out := cmd.OutOrStdout()
		failed := 0
		for _, t := range s.Registry.Tables() {
			problems := check(cmd, s, t)
			if len(problems) == 0 {
				color.New(color.FgGreen).Fprintf(out, "ok    %s\n", t.ID())
				continue
			}
			failed++
			color.New(color.FgRed).Fprintf(out, "FAIL  %s\n", t.ID())
			for _, p := range problems {
				fmt.Fprintf(out, "      %s\n", p)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d tables", ErrCheckFailed, failed, len(s.Registry.Tables()))
		}
		return nil
	},
}

func check(cmd *cobra.Command, s *internal.Session, t *xschema.Table) []string {
	ctx := cmd.Context()
	var problems []string
	if _, err := t.CalculateWhereClause(ctx, xschema.WhereInput{Context: xschema.PublicContext()}); err != nil {
		problems = append(problems, fmt.Sprintf("where: %v", err))
	}
	if _, err := t.CalculateInclude(ctx, xschema.PublicContext()); err != nil {
		problems = append(problems, fmt.Sprintf("include: %v", err))
	}
	if _, _, err := sqlx.SelectSQL(sqlx.Query{Table: t}); err != nil {
		problems = append(problems, fmt.Sprintf("ordering: %v", err))
	}
	db, ok := s.DB.Get()
	if !ok {
		return problems
	}
	cols, err := sqlx.Columns(ctx, db, t)
	if err != nil {
		return append(problems, fmt.Sprintf("storage: %v", err))
	}
	for _, f := range t.Fields() {
		if f.Kind() != xschema.KindAssociationRecord && !slices.Contains(cols, f.Member()) {
			problems = append(problems, fmt.Sprintf("column %s.%s is missing", t.Name(), f.Member()))
		}
	}
	return problems
}

// DriversCmd lists the known databases, whether their driver is compiled in
// and whether the current module requires it.
var DriversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List the supported database drivers.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		project := internal.FindProject(wd)
		registered := sql.Drivers()
		tw := table(cmd.OutOrStdout())
		fmt.Fprintln(tw, "DATABASE\tDRIVER\tREGISTERED\tREQUIRED\tURL")
		gjson.ParseBytes(driversJSON).ForEach(func(key, value gjson.Result) bool {
			driver := value.Get("driver").String()
			required := project.IsOk() && project.MustGet().DependsOn(value.Get("module").String()).IsPresent()
			fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", key.String(), driver,
				slices.Contains(registered, driver), required, value.Get("url").String())
			return true
		})
		return tw.Flush()
	},
}

func dash(s string) string {
	return lo.Ternary(s == "", "-", s)
}
