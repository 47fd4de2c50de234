package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/trackerhub/internal/finance"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

type balanceOutput struct {
	Currency          string            `json:"currency"`
	Income            string            `json:"income"`
	Expense           string            `json:"expense"`
	Balance           string            `json:"balance"`
	Transactions      int               `json:"transactions"`
	ExpenseByCategory map[string]string `json:"expense_by_category"`
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Summarize income and expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				e, err := a.client.Entities(types.TableTransactions)
				if err != nil {
					return err
				}
				rows, err := e.List(cmd.Context(), "", 0)
				if err != nil {
					return err
				}

				cur := currency
				if cur == "" {
					cur = a.cfg.Currency
				}
				s, err := finance.Summarize(rows, cur)
				if err != nil {
					return fmt.Errorf("%w: %v", errUsage, err)
				}

				out := cmd.OutOrStdout()
				if opts.jsonMode {
					byCategory := make(map[string]string, len(s.ExpenseByCategory))
					for k, v := range s.ExpenseByCategory {
						byCategory[k] = v.String()
					}
					return printJSON(out, balanceOutput{
						Currency:          s.Currency,
						Income:            s.Income.String(),
						Expense:           s.Expense.String(),
						Balance:           s.Balance.String(),
						Transactions:      s.Count,
						ExpenseByCategory: byCategory,
					})
				}

				fmt.Fprintf(out, "Income:  %s\n", s.Format(s.Income))
				fmt.Fprintf(out, "Expense: %s\n", s.Format(s.Expense))
				fmt.Fprintf(out, "Balance: %s\n", s.FormattedBalance())
				for _, category := range slices.Sorted(maps.Keys(s.ExpenseByCategory)) {
					name := category
					if name == "" {
						name = "(uncategorized)"
					}
					fmt.Fprintf(out, "  %s: %s\n", name, s.Format(s.ExpenseByCategory[category]))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency code (default from config)")
	return cmd
}
