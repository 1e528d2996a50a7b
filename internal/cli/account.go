package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Open and inspect accounts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Open an account with the signup bonus",
		Args:  cobra.NoArgs,
		RunE:  runAccountCreate,
	}
	create.Flags().String("name", "", "Display name (required)")
	create.Flags().String("email", "", "Email")
	create.Flags().String("referral-code", "", "Referral code of the inviting account")
	_ = create.MarkFlagRequired("name")

	show := &cobra.Command{
		Use:   "show ACCOUNT_ID",
		Short: "Print balance, level, badges and unlocks",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountShow,
	}

	cmd.AddCommand(create, show)
	return cmd
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	code, _ := cmd.Flags().GetString("referral-code")

	return withEnv(cmd, func(ctx context.Context, e *env) error {
		res, err := e.onboarding.OpenAccount(ctx, name, email, code)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "account %s\n", res.Account.ID)
		fmt.Fprintf(out, "balance %d (%s)\n", res.Account.Balance, res.Account.Level)
		fmt.Fprintf(out, "referral code %s\n", res.Account.ReferralCode)
		if r := res.Referral; r != nil {
			if r.Applied {
				fmt.Fprintf(out, "referred by %s\n", r.ReferrerName)
			} else {
				fmt.Fprintf(out, "referral not applied: %s\n", r.Reason)
			}
		}
		return nil
	})
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		st, err := e.economy.Status(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	})
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}
