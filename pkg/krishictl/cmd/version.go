package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digitalkrishi/officer-console/pkg/krishictl/output"
	"github.com/digitalkrishi/officer-console/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show krishictl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get(cliComponent)

			rt, _ := getRuntime(cmd)
			writer := cmd.OutOrStdout()
			if rt != nil {
				writer = rt.Writer()
			}

			switch outputFormat {
			case "json":
				return output.WriteObject(writer, output.FormatJSON, info)
			case "yaml":
				return output.WriteObject(writer, output.FormatYAML, info)
			case "":
				_, _ = fmt.Fprintf(writer, "krishictl %s (commit: %s, built: %s)\n", info.Version, info.ShortCommit(), info.BuildDate)
				return nil
			default:
				return fmt.Errorf("unknown output format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: json, yaml")

	return cmd
}
