package cmd

import (
	"github.com/spf13/cobra"

	"github.com/digitalkrishi/officer-console/pkg/krishictl/output"
)

func NewDashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show today's workload summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			c, err := buildClient(rt)
			if err != nil {
				return err
			}
			stats, err := c.Dashboard().Get(cmd.Context())
			if err != nil {
				return apiError(err)
			}
			if format == output.FormatTable {
				output.WriteDashboard(rt.Writer(), *stats)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, stats)
		},
	}
}
