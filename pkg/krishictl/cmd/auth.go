package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/auth"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in and out of the advisory API",
	}
	cmd.AddCommand(newAuthLoginCommand(), newAuthStatusCommand(), newAuthLogoutCommand())
	return cmd
}

// tokenKey names the token store entry for the active context.
func tokenKey(rt *runtimeState) string {
	if name := rt.ResolveContextName(); name != "" {
		return name
	}
	return "default"
}

func newAuthLoginCommand() *cobra.Command {
	var (
		employeeID    string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with employee ID and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if employeeID == "" {
				if ctxCfg, err := rt.ResolveContext(); err == nil {
					employeeID = ctxCfg.EmployeeID
				}
			}
			employeeID = strings.TrimSpace(employeeID)
			if employeeID == "" {
				return errors.New("employee ID is required (--employee-id or context employee-id)")
			}

			password := os.Getenv("KRISHICTL_PASSWORD")
			if passwordStdin || password == "" {
				if !passwordStdin {
					_, _ = fmt.Fprint(rt.ErrWriter(), "Password: ")
				}
				password, err = auth.ReadSecret(rt.Input())
				if err != nil {
					return err
				}
			}

			c, err := buildAnonymousClient(rt)
			if err != nil {
				return err
			}
			token, err := auth.Login(cmd.Context(), c.Auth(), employeeID, password)
			if err != nil {
				if client.IsUnauthorized(err) {
					return errors.New("invalid employee ID or password")
				}
				return err
			}
			store, err := rt.TokenStore()
			if err != nil {
				return err
			}
			if err := store.Save(tokenKey(rt), token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			name := token.Name
			if name == "" {
				name = token.EmployeeID
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Logged in as %s (%s)\n", name, token.EmployeeID)
			if !token.Expiry.IsZero() {
				_, _ = fmt.Fprintf(rt.Writer(), "Token expires %s\n", token.Expiry.Local().Format(time.RFC1123))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&employeeID, "employee-id", "", "Employee ID, defaults to the context's employee-id")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored login for the current context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := rt.TokenStore()
			if err != nil {
				return err
			}
			key := tokenKey(rt)
			token, ok, err := store.Get(key)
			if err != nil {
				return err
			}
			w := rt.Writer()
			if !ok {
				_, _ = fmt.Fprintf(w, "Context %s: not logged in\n", key)
				return nil
			}
			state := "valid"
			if token.Expired(time.Now()) {
				state = "expired"
			}
			_, _ = fmt.Fprintf(w, "Context %s: logged in as %s (%s), token %s\n", key, token.Name, token.EmployeeID, state)
			if !token.Expiry.IsZero() {
				_, _ = fmt.Fprintf(w, "Expires: %s\n", token.Expiry.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token for the current context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := rt.TokenStore()
			if err != nil {
				return err
			}
			key := tokenKey(rt)
			if err := store.Delete(key); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Logged out of %s\n", key)
			return nil
		},
	}
}
