package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newBadgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Manage badges",
	}
	award := &cobra.Command{
		Use:   "award ACCOUNT_ID",
		Short: "Award a badge by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			icon, _ := cmd.Flags().GetString("icon")

			return withEnv(cmd, func(ctx context.Context, e *env) error {
				added, err := e.economy.AwardBadge(ctx, id, name, icon)
				if err != nil {
					return err
				}
				if !added {
					fmt.Fprintf(cmd.OutOrStdout(), "badge %q already held\n", name)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "badge %q awarded\n", name)
				return nil
			})
		},
	}
	award.Flags().String("name", "", "Badge name (required)")
	award.Flags().String("icon", "🏅", "Badge icon")
	_ = award.MarkFlagRequired("name")

	cmd.AddCommand(award)
	return cmd
}

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage template access",
	}
	grant := &cobra.Command{
		Use:   "grant ACCOUNT_ID TEMPLATE_ID",
		Short: "Unlock a template without charging",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := e.economy.GrantTemplate(ctx, id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "template %s granted\n", args[1])
				return nil
			})
		},
	}
	cmd.AddCommand(grant)
	return cmd
}
