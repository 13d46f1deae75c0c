package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/ddl"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

func newEnginesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List supported engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engines := datasource.RegisteredAdapters()
			return c.emit(engines, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ENGINE\tNAME\tPORT\tDESCRIPTION")
				for _, e := range engines {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Engine, e.DisplayName, e.DefaultPort, e.Description)
				}
				return tw.Flush()
			})
		},
	}
}

func newDDLCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the CREATE TABLE statement for a table file without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.engineFlag(cmd)
			if err != nil {
				return err
			}
			def, err := readTableFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			statements, err := ddl.Build(models.CreateTableStep(def), engine)
			if err != nil {
				return err
			}
			return c.emit(statements, func(w io.Writer) error {
				return writeStatements(w, statements)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Table definition YAML (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newTestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the target database is reachable",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			if err := c.schema.TestConnection(cmd.Context(), conn); err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "connected to %s\n", conn.Key())
			return err
		}),
	}
}

func newDatabasesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List user databases on the target server",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			databases, err := c.schema.ListDatabases(cmd.Context(), conn)
			if err != nil {
				return err
			}
			return c.emit(databases, func(w io.Writer) error { return writeLines(w, databases) })
		}),
	}
}

func newTablesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List user tables in the target database",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			tables, err := c.schema.ListTables(cmd.Context(), conn)
			if err != nil {
				return err
			}
			return c.emit(tables, func(w io.Writer) error { return writeLines(w, tables) })
		}),
	}
}

func newColumnsCmd(c *cli) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Show the live columns of a table",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			columns, err := c.schema.ListColumns(cmd.Context(), conn, table)
			if err != nil {
				return err
			}
			return c.emit(columns, func(w io.Writer) error { return writeColumns(w, columns) })
		}),
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "Table name")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newCreateCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a table from a table file",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			def, err := readTableFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			report, err := c.migration.CreateTable(cmd.Context(), conn, def)
			return c.emitReport(report, err)
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Table definition YAML (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDropCmd(c *cli) *cobra.Command {
	var table string
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop a table and all of its data",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop %s without --yes", table)
			}
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			report, err := c.migration.DropTable(cmd.Context(), conn, table)
			return c.emitReport(report, err)
		}),
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "Table name")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm that the table's data may be lost")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newRenameCmd(c *cli) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a table",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			report, err := c.migration.RenameTable(cmd.Context(), conn, from, to)
			return c.emitReport(report, err)
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "Current table name")
	cmd.Flags().StringVar(&to, "to", "", "New table name")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// columnFlags collects a column definition from flags.
type columnFlags struct {
	name       string
	typeName   string
	length     int
	nullable   bool
	primaryKey bool
}

func (f *columnFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "column", "", "Column name")
	cmd.Flags().StringVar(&f.typeName, "type", "", "Logical type, e.g. int32, string, decimal, uuid")
	cmd.Flags().IntVar(&f.length, "length", 0, "Length for string and binary columns (default: unbounded)")
	cmd.Flags().BoolVar(&f.nullable, "nullable", false, "Allow NULL")
	cmd.Flags().BoolVar(&f.primaryKey, "primary-key", false, "Mark as primary key")
	_ = cmd.MarkFlagRequired("column")
	_ = cmd.MarkFlagRequired("type")
}

func (f *columnFlags) definition() (models.ColumnDefinition, error) {
	lt, err := models.ParseLogicalType(f.typeName)
	if err != nil {
		return models.ColumnDefinition{}, err
	}
	col := models.ColumnDefinition{
		Name:         f.name,
		Type:         lt,
		IsNullable:   f.nullable || lt.NullableSource,
		IsPrimaryKey: f.primaryKey,
	}
	if f.length > 0 {
		col.Length = models.IntPtr(f.length)
	}
	return col, nil
}

func newAddColumnCmd(c *cli) *cobra.Command {
	var table string
	var col columnFlags
	cmd := &cobra.Command{
		Use:   "add-column",
		Short: "Add a column to a table",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			def, err := col.definition()
			if err != nil {
				return err
			}
			report, err := c.migration.AddColumn(cmd.Context(), conn, table, def)
			return c.emitReport(report, err)
		}),
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "Table name")
	_ = cmd.MarkFlagRequired("table")
	col.register(cmd)
	return cmd
}

func newDropColumnCmd(c *cli) *cobra.Command {
	var table, column string
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop-column",
		Short: "Drop a column and its data",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop %s.%s without --yes", table, column)
			}
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			report, err := c.migration.DropColumn(cmd.Context(), conn, table, column)
			return c.emitReport(report, err)
		}),
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "Table name")
	cmd.Flags().StringVar(&column, "column", "", "Column name")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm that the column's data may be lost")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newAlterColumnCmd(c *cli) *cobra.Command {
	var table string
	var col columnFlags
	cmd := &cobra.Command{
		Use:   "alter-column",
		Short: "Change a column's type, length or nullability in place",
		Args:  cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			def, err := col.definition()
			if err != nil {
				return err
			}
			report, err := c.migration.AlterColumn(cmd.Context(), conn, table, def)
			return c.emitReport(report, err)
		}),
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "Table name")
	_ = cmd.MarkFlagRequired("table")
	col.register(cmd)
	return cmd
}

func newDiffCmd(c *cli) *cobra.Command {
	var file, table string
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a table file with the live table",
		Long: `Compare a table file with the live table. --table names the live table
and defaults to the file's name; when they differ the diff includes a rename.`,
		Args: cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			def, err := readTableFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			live := table
			if live == "" {
				live = def.Name
			}
			diff, err := c.migration.ComputeDiff(cmd.Context(), conn, def, live)
			if err != nil {
				return err
			}
			return c.emit(diff, func(w io.Writer) error { return writeDiff(w, live, diff) })
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Table definition YAML (- for stdin)")
	cmd.Flags().StringVarP(&table, "table", "t", "", "Live table name (default: name in file)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newApplyCmd(c *cli) *cobra.Command {
	var file, table string
	var approve, dryRun bool
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Bring the live table in line with a table file",
		Long: `Bring the live table in line with a table file. Steps run in order:
rename, added columns, dropped columns, then columns whose type changed
incompatibly. Those last are dropped and re-added, losing their data, and
only run with --approve-destructive. A failing statement stops the run;
earlier steps are not rolled back.`,
		Args: cobra.NoArgs,
		RunE: c.withServices(func(cmd *cobra.Command, args []string) error {
			conn, err := c.connection(cmd)
			if err != nil {
				return err
			}
			def, err := readTableFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			live := table
			if live == "" {
				live = def.Name
			}
			diff, err := c.migration.ComputeDiff(cmd.Context(), conn, def, live)
			if err != nil {
				return err
			}

			if dryRun {
				report, err := c.migration.PlanModification(*diff, live, conn.Engine, approve)
				return c.emitReport(report, err)
			}
			report, err := c.migration.ApplyModificationPlan(cmd.Context(), conn, *diff, live, approve)
			return c.emitReport(report, err)
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Table definition YAML (- for stdin)")
	cmd.Flags().StringVarP(&table, "table", "t", "", "Live table name (default: name in file)")
	cmd.Flags().BoolVar(&approve, "approve-destructive", false, "Allow drop-and-re-add of incompatibly changed columns")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without connecting to execute it")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// emitReport prints report, even a partial one, then returns err.
func (c *cli) emitReport(report *models.PlanReport, err error) error {
	if report != nil {
		if emitErr := c.emit(report, func(w io.Writer) error { return writeReport(w, report) }); emitErr != nil && err == nil {
			return emitErr
		}
	}
	return err
}
