package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/output"
)

var validate = validator.New()

func NewProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the signed-in officer's profile",
	}
	cmd.AddCommand(newProfileGetCommand(), newProfileUpdateCommand())
	return cmd
}

func writeProfile(rt *runtimeState, o *v1.Officer) error {
	format, err := rt.OutputFormat()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		output.WriteProfile(rt.Writer(), *o)
		return nil
	}
	return output.WriteObject(rt.Writer(), format, o)
}

func newProfileGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			c, err := buildClient(rt)
			if err != nil {
				return err
			}
			officer, err := c.Profile().Get(cmd.Context())
			if err != nil {
				return apiError(err)
			}
			return writeProfile(rt, officer)
		},
	}
}

func newProfileUpdateCommand() *cobra.Command {
	var update v1.ProfileUpdate

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change name, email, phone or language",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			u := v1.ProfileUpdate{
				Name:     strings.TrimSpace(update.Name),
				Email:    strings.TrimSpace(update.Email),
				Phone:    strings.TrimSpace(update.Phone),
				Language: strings.ToLower(strings.TrimSpace(update.Language)),
			}
			if u.Empty() {
				return errors.New("nothing to update; pass --name, --email, --phone or --language")
			}
			if err := validate.Struct(u); err != nil {
				return fmt.Errorf("invalid profile update: %w", err)
			}
			c, err := buildClient(rt)
			if err != nil {
				return err
			}
			officer, err := c.Profile().Update(cmd.Context(), u)
			if err != nil {
				return apiError(err)
			}
			if officer == nil {
				_, _ = fmt.Fprintln(rt.Writer(), "Profile updated.")
				return nil
			}
			return writeProfile(rt, officer)
		},
	}

	cmd.Flags().StringVar(&update.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&update.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&update.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&update.Language, "language", "", "Preferred language: en or ml")
	return cmd
}
