package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/output"
)

func NewAnalyticsCommand() *cobra.Command {
	period := v1.DefaultAnalyticsPeriod

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show escalation analytics for a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if !slices.Contains(v1.AnalyticsPeriods(), period) {
				return fmt.Errorf("unknown period %q, expected one of %s", period, strings.Join(v1.AnalyticsPeriods(), ", "))
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			c, err := buildClient(rt)
			if err != nil {
				return err
			}
			report, err := c.Analytics().Get(cmd.Context(), period)
			if err != nil {
				return apiError(err)
			}
			if report.Period == "" {
				report.Period = period
			}
			if format == output.FormatTable {
				output.WriteAnalytics(rt.Writer(), *report)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, report)
		},
	}

	cmd.Flags().StringVar(&period, "period", period, "Reporting period: 7d, 30d or 90d")
	return cmd
}
