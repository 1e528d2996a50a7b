package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errOutOfBalance = errors.New("ledger out of balance")

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile ACCOUNT_ID",
		Short: "Check the journal sums to the stored balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				r, err := e.economy.Reconcile(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "balance %d, journal sum %d over %d transactions\n",
					r.Balance, r.TransactionSum, r.TransactionCount)
				if !r.Balanced {
					return errOutOfBalance
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
}

func newAdjustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjust ACCOUNT_ID",
		Short: "Correct a balance or record purchased points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetInt64("amount")
			reason, _ := cmd.Flags().GetString("reason")
			purchase, _ := cmd.Flags().GetBool("purchase")

			return withEnv(cmd, func(ctx context.Context, e *env) error {
				res, err := e.economy.Adjust(ctx, id, amount, reason, purchase)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "transaction %s: %+d, balance %d (%s)\n",
					res.Transaction.ID, res.PointsAwarded, res.TotalPoints, res.NewLevel)
				return nil
			})
		},
	}
	cmd.Flags().Int64("amount", 0, "Signed number of points (required)")
	cmd.Flags().String("reason", "", "Reason recorded on the transaction")
	cmd.Flags().Bool("purchase", false, "Record as purchased points instead of an adjustment")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newRefundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund TRANSACTION_ID",
		Short: "Refund a download or AI suggestion spend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txID, err := parseID(args[0])
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")

			return withEnv(cmd, func(ctx context.Context, e *env) error {
				res, err := e.economy.Refund(ctx, txID, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "refund %s: %+d, balance %d\n",
					res.Transaction.ID, res.PointsAwarded, res.TotalPoints)
				return nil
			})
		},
	}
	cmd.Flags().String("reason", "", "Reason recorded on the refund")
	return cmd
}
