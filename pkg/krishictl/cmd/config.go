package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/config"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/output"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage krishictl configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
		newConfigContextsCommand(),
		newConfigCurrentContextCommand(),
		newConfigSetContextCommand(),
		newConfigUseContextCommand(),
		newConfigSetValueCommand(),
		newConfigDeleteContextCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		ctx   config.Context
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a krishictl config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			if ctx.Name == "" {
				ctx.Name = "default"
			}
			cfg := config.DefaultConfig()
			cfg.CurrentContext = ctx.Name
			cfg.Contexts = append(cfg.Contexts, ctx)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&ctx.Name, "context", "default", "Context name")
	cmd.Flags().StringVar(&ctx.Server, "server", client.DefaultServer, "Advisory API URL")
	cmd.Flags().StringVar(&ctx.EmployeeID, "employee-id", "", "Employee ID used by auth login")
	cmd.Flags().StringVar(&ctx.CAFile, "ca-file", "", "CA bundle for the server certificate")
	cmd.Flags().BoolVar(&ctx.InsecureSkipTLSVerify, "insecure-skip-tls-verify", false, "Skip TLS verification")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			return output.WriteObject(rt.Writer(), output.FormatYAML, rt.cfg)
		},
	}
}

func newConfigContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-contexts",
		Short: "List configured contexts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			current := rt.cfg.CurrentContextOrDefault()
			tw := tabwriter.NewWriter(rt.Writer(), 2, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "CURRENT\tNAME\tSERVER\tEMPLOYEE ID")
			for _, ctx := range rt.cfg.Contexts {
				marker := ""
				if ctx.Name == current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, ctx.Name, ctx.Server, ctx.EmployeeID)
			}
			return tw.Flush()
		},
	}
}

func newConfigCurrentContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Show the current context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), rt.cfg.CurrentContextOrDefault())
			return nil
		},
	}
}

func newConfigSetContextCommand() *cobra.Command {
	var (
		ctx      config.Context
		activate bool
	)

	cmd := &cobra.Command{
		Use:   "set-context NAME",
		Short: "Add or replace a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			ctx.Name = args[0]
			if existing, err := rt.cfg.FindContext(ctx.Name); err == nil {
				if !cmd.Flags().Changed("server") {
					ctx.Server = existing.Server
				}
				if !cmd.Flags().Changed("employee-id") {
					ctx.EmployeeID = existing.EmployeeID
				}
				if !cmd.Flags().Changed("ca-file") {
					ctx.CAFile = existing.CAFile
				}
				if !cmd.Flags().Changed("insecure-skip-tls-verify") {
					ctx.InsecureSkipTLSVerify = existing.InsecureSkipTLSVerify
				}
			} else if ctx.Server == "" {
				return fmt.Errorf("--server is required for new context %s", ctx.Name)
			}
			rt.cfg.SetContext(ctx)
			if activate || rt.cfg.CurrentContext == "" {
				rt.cfg.CurrentContext = ctx.Name
			}
			if err := rt.cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(rt.configPathValue(), rt.cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Context %s saved\n", ctx.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&ctx.Server, "server", "", "Advisory API URL")
	cmd.Flags().StringVar(&ctx.EmployeeID, "employee-id", "", "Employee ID used by auth login")
	cmd.Flags().StringVar(&ctx.CAFile, "ca-file", "", "CA bundle for the server certificate")
	cmd.Flags().BoolVar(&ctx.InsecureSkipTLSVerify, "insecure-skip-tls-verify", false, "Skip TLS verification")
	cmd.Flags().BoolVar(&activate, "use", false, "Make it the current context")
	return cmd
}

func newConfigUseContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "use-context NAME",
		Aliases: []string{"use"},
		Short:   "Set the current context",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			name := args[0]
			if _, err := rt.cfg.FindContext(name); err != nil {
				return err
			}
			rt.cfg.CurrentContext = name
			if err := config.Save(rt.configPathValue(), rt.cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Switched to context %s\n", name)
			return nil
		},
	}
}

func newConfigSetValueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Keys: settings.output-format, settings.color, settings.timeout, settings.token-storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			key, value := args[0], args[1]
			switch key {
			case "settings.output-format":
				if _, err := output.ParseFormat(value); err != nil {
					return err
				}
				rt.cfg.Settings.OutputFormat = value
			case "settings.color":
				if err := output.SetColorMode(value); err != nil {
					return err
				}
				rt.cfg.Settings.Color = value
			case "settings.timeout":
				if d, err := time.ParseDuration(value); err != nil || d <= 0 {
					return fmt.Errorf("invalid timeout: %s", value)
				}
				rt.cfg.Settings.Timeout = value
			case "settings.token-storage":
				rt.cfg.Settings.TokenStorage = value
			default:
				return fmt.Errorf("unsupported key: %s", key)
			}
			if err := rt.cfg.Validate(); err != nil {
				return err
			}
			return config.Save(rt.configPathValue(), rt.cfg)
		},
	}
}

func newConfigDeleteContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context NAME",
		Short: "Remove a context and its stored token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			name := args[0]
			if err := rt.cfg.DeleteContext(name); err != nil {
				return err
			}
			if err := config.Save(rt.configPathValue(), rt.cfg); err != nil {
				return err
			}
			if store, err := rt.TokenStore(); err == nil {
				_ = store.Delete(name)
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Deleted context %s\n", name)
			return nil
		},
	}
}
