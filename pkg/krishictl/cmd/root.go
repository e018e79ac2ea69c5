package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digitalkrishi/officer-console/pkg/krishictl/auth"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/config"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/output"
)

type Config struct {
	ConfigPath   string
	TokenPath    string
	OutputWriter io.Writer
	ErrorWriter  io.Writer
	Input        io.Reader
	// TokenStore replaces the store chosen by the token-storage setting.
	TokenStore auth.Store
}

type runtimeState struct {
	configPath           string
	tokenPath            string
	cfg                  *config.Config
	contextOverride      string
	outputFormat         string
	serverOverride       string
	tokenOverride        string
	tokenStorageOverride string
	verbose              bool
	writer               io.Writer
	errWriter            io.Writer
	input                io.Reader
	store                auth.Store
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		TokenPath:    config.DefaultTokenPath(),
		OutputWriter: os.Stdout,
		ErrorWriter:  os.Stderr,
		Input:        os.Stdin,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath: cfg.ConfigPath,
		tokenPath:  cfg.TokenPath,
		writer:     cfg.OutputWriter,
		errWriter:  cfg.ErrorWriter,
		input:      cfg.Input,
		store:      cfg.TokenStore,
	}

	root := &cobra.Command{
		Use:           "krishictl",
		Short:         "Digital Krishi extension officer CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.contextOverride == "" {
				rt.contextOverride = os.Getenv("KRISHICTL_CONTEXT")
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("KRISHICTL_OUTPUT")
			}
			if rt.serverOverride == "" {
				rt.serverOverride = os.Getenv("KRISHICTL_SERVER")
			}
			if rt.tokenOverride == "" {
				rt.tokenOverride = os.Getenv("KRISHICTL_TOKEN")
			}
			if rt.tokenStorageOverride == "" {
				rt.tokenStorageOverride = os.Getenv("KRISHICTL_TOKEN_STORAGE")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("KRISHICTL_VERBOSE"), "true")
			}

			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			// Server and token together need no config file.
			if rt.serverOverride != "" && rt.tokenOverride != "" {
				c := config.DefaultConfig()
				rt.cfg = &c
				return nil
			}

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					if rt.serverOverride != "" {
						c := config.DefaultConfig()
						rt.cfg = &c
						return nil
					}
					return errors.New("no config found; run 'krishictl config init --server URL'")
				}
				return err
			}
			rt.cfg = loaded
			return output.SetColorMode(rt.cfg.Settings.Color)
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.contextOverride, "context", "c", "", "Context name override")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().StringVar(&rt.serverOverride, "server", "", "Server override (bypass config)")
	root.PersistentFlags().StringVar(&rt.tokenOverride, "token", "", "Bearer token override")
	root.PersistentFlags().StringVar(&rt.tokenStorageOverride, "token-storage", "", "Token storage backend: keychain or file")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Log backend requests to stderr")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewConfigCommand(),
		NewAuthCommand(),
		NewEscalationCommand(),
		NewDashboardCommand(),
		NewAnalyticsCommand(),
		NewProfileCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) ResolveContextName() string {
	if rt.contextOverride != "" {
		return rt.contextOverride
	}
	if rt.cfg != nil {
		return rt.cfg.CurrentContextOrDefault()
	}
	return ""
}

func (rt *runtimeState) OutputFormat() (output.Format, error) {
	if rt.outputFormat != "" {
		return output.ParseFormat(rt.outputFormat)
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return output.ParseFormat(rt.cfg.Settings.OutputFormat)
	}
	return output.FormatTable, nil
}

func (rt *runtimeState) TokenStorage() string {
	if rt.tokenStorageOverride != "" {
		return rt.tokenStorageOverride
	}
	if rt.cfg != nil && rt.cfg.Settings.TokenStorage != "" {
		return rt.cfg.Settings.TokenStorage
	}
	return ""
}

// TokenStore returns the injected store or the one named by the settings.
func (rt *runtimeState) TokenStore() (auth.Store, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	path := rt.tokenPath
	if path == "" {
		path = config.DefaultTokenPath()
	}
	store, err := auth.NewStore(rt.TokenStorage(), path)
	if err != nil {
		return nil, err
	}
	rt.store = store
	return store, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) ErrWriter() io.Writer {
	if rt.errWriter != nil {
		return rt.errWriter
	}
	return os.Stderr
}

func (rt *runtimeState) Input() io.Reader {
	if rt.input != nil {
		return rt.input
	}
	return os.Stdin
}

func (rt *runtimeState) EnsureConfigLoaded() error {
	if rt.cfg != nil {
		return nil
	}
	cfg, err := config.Load(rt.configPathValue())
	if err != nil {
		return err
	}
	rt.cfg = cfg
	return nil
}

func (rt *runtimeState) ResolveContext() (*config.Context, error) {
	if rt.cfg == nil {
		return nil, errors.New("config not loaded")
	}
	name := rt.ResolveContextName()
	if name == "" {
		return nil, errors.New("no context configured")
	}
	return rt.cfg.FindContext(name)
}

func (rt *runtimeState) resolveServer(ctx *config.Context) string {
	if rt.serverOverride != "" {
		return rt.serverOverride
	}
	if ctx != nil {
		return ctx.Server
	}
	return ""
}

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}
