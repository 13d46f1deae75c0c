package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// emit writes v as JSON or YAML, or calls text for the default format.
func (c *cli) emit(v any, text func(w io.Writer) error) error {
	switch c.output {
	case "json":
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return text(c.out)
	}
	return fmt.Errorf("invalid output format: %s (must be 'text', 'json' or 'yaml')", c.output)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeStatements(w io.Writer, statements []string) error {
	for _, stmt := range statements {
		if _, err := fmt.Fprintf(w, "%s;\n", stmt); err != nil {
			return err
		}
	}
	return nil
}

func writeColumns(w io.Writer, columns []models.LiveColumnSnapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tLENGTH\tNULLABLE\tPK\tIDENTITY")
	for _, col := range columns {
		length := "-"
		if col.Length != nil {
			length = fmt.Sprint(*col.Length)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%t\n",
			col.Name, col.Type, length, col.IsNullable, col.IsPrimaryKey, col.IsIdentity)
	}
	return tw.Flush()
}

func writeDiff(w io.Writer, table string, diff *models.SchemaDiff) error {
	if diff.IsEmpty() {
		_, err := fmt.Fprintf(w, "%s: no changes\n", table)
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", table)
	if diff.RenamedTo != "" {
		fmt.Fprintf(&b, "  rename to %s\n", diff.RenamedTo)
	}
	for _, col := range diff.Added {
		fmt.Fprintf(&b, "  + %s %s\n", col.Name, col.Type)
	}
	for _, name := range diff.Dropped {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	for _, col := range diff.DestructivelyModified {
		fmt.Fprintf(&b, "  ! %s %s (drop and re-add, data loss)\n", col.Name, col.Type)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeReport(w io.Writer, report *models.PlanReport) error {
	var b strings.Builder
	if len(report.Steps) == 0 {
		fmt.Fprintf(&b, "%s: nothing to do\n", report.Table)
	}
	for _, outcome := range report.Steps {
		fmt.Fprintf(&b, "[%s] %s %s\n", outcome.Status, outcome.Step.Kind, outcome.Step.Target())
		for _, stmt := range outcome.Statements {
			fmt.Fprintf(&b, "    %s;\n", stmt)
		}
		if outcome.Error != "" {
			fmt.Fprintf(&b, "    error: %s\n", outcome.Error)
		}
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(&b, "skipped destructive changes to: %s (rerun with --approve-destructive)\n",
			strings.Join(report.Skipped, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
