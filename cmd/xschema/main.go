package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kcmvp/xschema/cmd/internal"
	"github.com/kcmvp/xschema/cmd/xschema/query"
	"github.com/kcmvp/xschema/cmd/xschema/schema"
	"github.com/spf13/cobra"
)

var useDB bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xschema",
	Short: "xschema inspects table descriptors.",
	Long: `xschema lists and checks the registered table descriptors, prints the
where clauses they build for a client and validates rows against them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		s, err := internal.NewSession(useDB)
		if err != nil {
			return err
		}
		internal.WithSession(cmd, s)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&useDB, "db", false, "resolve roles and columns through datasource DefaultDS")
	rootCmd.AddCommand(schema.TablesCmd, schema.DescribeCmd, schema.CheckCmd, schema.DriversCmd)
	rootCmd.AddCommand(query.WhereCmd, query.ValidateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}
