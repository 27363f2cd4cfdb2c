package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridscope/settleaudit/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [table...]",
	Short: "Inspect source database table columns",
	Long: `List the columns of billing database tables, for chasing down migration
cache extraction surprises. The connection string comes from --dsn or the
SETTLEAUDIT_DB_DSN environment variable.

Example:
  settleaudit schema flex_billing_history flex_billing_hourly`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSchema,
}

var schemaDSN string

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVar(&schemaDSN, "dsn", "", "Postgres connection string")
}

func runSchema(cmd *cobra.Command, args []string) error {
	dsn := schemaDSN
	if dsn == "" {
		dsn = os.Getenv("SETTLEAUDIT_DB_DSN")
	}
	if dsn == "" {
		return fmt.Errorf("no connection string, pass --dsn or set SETTLEAUDIT_DB_DSN")
	}

	inspector, err := schema.Open(dsn)
	if err != nil {
		return err
	}
	defer inspector.Close()

	for _, table := range args {
		cols, err := inspector.Columns(cmd.Context(), table)
		if err != nil {
			return err
		}
		schema.Print(os.Stdout, table, cols)
		fmt.Println()
	}
	return nil
}
