package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/output"
)

func NewEscalationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "escalation",
		Aliases: []string{"escalations", "esc"},
		Short:   "List, inspect and answer escalated farmer queries",
	}
	cmd.AddCommand(newEscalationListCommand(), newEscalationGetCommand(), newEscalationRespondCommand())
	return cmd
}

func newEscalationListCommand() *cobra.Command {
	filter := v1.DefaultEscalationFilter()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List escalations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			f, err := parseFilter(filter)
			if err != nil {
				return err
			}
			c, err := buildClient(rt)
			if err != nil {
				return err
			}
			escs, err := c.Escalations().List(cmd.Context(), f)
			if err != nil {
				return apiError(err)
			}
			if format == output.FormatTable {
				if len(escs) == 0 {
					_, _ = fmt.Fprintln(rt.Writer(), "No escalations found.")
					return nil
				}
				output.WriteEscalationTable(rt.Writer(), escs)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, escs)
		},
	}

	cmd.Flags().StringVar(&filter.Status, "status", filter.Status, "Status filter: pending, assigned, in_progress, resolved, closed or all")
	cmd.Flags().StringVar(&filter.Priority, "priority", filter.Priority, "Priority filter: urgent, high, medium, low or all")
	cmd.Flags().IntVar(&filter.Limit, "limit", filter.Limit, "Maximum number of escalations")
	return cmd
}

// parseFilter accepts the spellings the table prints, like "In Progress".
func parseFilter(f v1.EscalationFilter) (v1.EscalationFilter, error) {
	f = f.Normalize()
	if strings.EqualFold(f.Status, v1.FilterAll) {
		f.Status = v1.FilterAll
	} else {
		s, err := v1.ParseStatus(f.Status)
		if err != nil {
			return f, fmt.Errorf("unknown status filter: %q", f.Status)
		}
		f.Status = string(s)
	}
	if strings.EqualFold(f.Priority, v1.FilterAll) {
		f.Priority = v1.FilterAll
	} else {
		p, err := v1.ParsePriority(f.Priority)
		if err != nil {
			return f, fmt.Errorf("unknown priority filter: %q", f.Priority)
		}
		f.Priority = string(p)
	}
	return f, f.Validate()
}

func parseEscalationID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid escalation ID: %q", arg)
	}
	return id, nil
}

func newEscalationGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one escalation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			id, err := parseEscalationID(args[0])
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
			esc, err := c.Escalations().Get(cmd.Context(), id)
			if err != nil {
				return apiError(err)
			}
			if format == output.FormatTable {
				output.WriteEscalation(rt.Writer(), esc)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, esc)
		},
	}
}

func newEscalationRespondCommand() *cobra.Command {
	var (
		message string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "respond ID",
		Short: "Send a response to a farmer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			id, err := parseEscalationID(args[0])
			if err != nil {
				return err
			}
			text, err := responseText(rt, message, file)
			if err != nil {
				return err
			}

			c, err := buildClient(rt)
			if err != nil {
				return err
			}
			esc, err := c.Escalations().Get(cmd.Context(), id)
			if err != nil {
				return apiError(err)
			}
			if !esc.Status.Respondable() {
				return fmt.Errorf("escalation #%d is %s and can no longer be answered", id, strings.ToLower(esc.Status.Label()))
			}
			result, err := c.Escalations().Respond(cmd.Context(), id, text)
			if err != nil {
				return apiError(err)
			}
			if result.Status == "" {
				_, _ = fmt.Fprintf(rt.Writer(), "Response sent to escalation #%d\n", id)
				return nil
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Response sent to escalation #%d (%s)\n", id, result.Status.Label())
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Response text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the response from a file, - for stdin")
	cmd.MarkFlagsMutuallyExclusive("message", "file")
	return cmd
}

func responseText(rt *runtimeState, message, file string) (string, error) {
	text := message
	switch file {
	case "":
	case "-":
		data, err := io.ReadAll(rt.Input())
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
		text = string(data)
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("response text is required (--message or --file)")
	}
	return text, nil
}
