package cli

import (
	"github.com/spf13/cobra"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

func newLedgerCommand(e *env) *cobra.Command {
	var filterType, from, to string
	var out output

	cmd := &cobra.Command{
		Use:   "ledger <kind> <id>",
		Short: "Rebuild an account ledger with running balances",
		Long:  "kind is one of transactors, vendors, customers or expenses; id is the account code or internal id.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := ledger.ParseKind(args[0])
			if err != nil {
				return err
			}
			filter, err := ledger.ParseFilter(filterType, from, to)
			if err != nil {
				return err
			}
			return run(cmd, e, func(rt *Runtime, q *notify.Queue) error {
				l, err := rt.Ledgers.Load(cmd.Context(), "", ledger.AccountRef{Kind: kind, ID: args[1]}, filter, q)
				if err != nil {
					return err
				}
				now := rt.Ledgers.Now()
				return out.write(cmd, rt, l, func() (export.Workbook, error) {
					return export.LedgerWorkbook(rt.Company, l, now, filter.Label(now)), nil
				}, q)
			})
		},
	}
	cmd.Flags().StringVar(&filterType, "filter", "all", "date filter: all, day, month, year or custom")
	cmd.Flags().StringVar(&from, "from", "", "custom filter start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "custom filter end (YYYY-MM-DD)")
	out.bind(cmd)
	return cmd
}
