package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/warehouse-to-go/internal/plan"
	"github.com/dbsmedya/warehouse-to-go/internal/report"
)

var planSource string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the extraction plan",
	Long: `Plan reads the dbt manifest and lists every source table that would be
extracted, grouped by warehouse database and schema, together with the row
limit and batch size it would be read with. Nothing is queried.

Example:
  warehouse-to-go plan --manifest target/manifest.json --source raw_crm`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planSource, "source", "s", "",
		"Restrict the plan to one source name")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	p, err := buildPlan(cfg, planSource, log)
	if err != nil {
		return err
	}

	printPlan(cmd, p, "📋 Extraction Plan:")
	return nil
}

func printPlan(cmd *cobra.Command, p *plan.Plan, title string) {
	printer := newPrinter(cmd)
	printer.Title(title)
	printer.Plan(p)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s tables in %s schemas\n",
		report.FormatCount(p.TableCount()), report.FormatCount(p.Len()))
}
