package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

func newReportCommand(e *env) *cobra.Command {
	var req reports.PeriodRequest
	var periodType, saved string
	var out output

	cmd := &cobra.Command{
		Use:   "report <trial-balance|profit-loss|balance-sheet|vat>",
		Short: "Generate a financial report or export a saved one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if saved == "" && len(args) == 0 {
				return fmt.Errorf("report type or --saved is required")
			}
			return run(cmd, e, func(rt *Runtime, q *notify.Queue) error {
				var doc reports.Document
				var err error
				switch {
				case saved != "":
					doc, err = rt.Reports.Load(cmd.Context(), saved, q)
				default:
					var t reports.Type
					if t, err = reports.ParseType(args[0]); err != nil {
						return err
					}
					if t == reports.TypeTrialBalance {
						doc, err = rt.Reports.TrialBalance(cmd.Context(), q)
						break
					}
					req.PeriodType = reports.PeriodType(periodType)
					doc, err = rt.Reports.Generate(cmd.Context(), t, req, q)
				}
				if err != nil {
					return err
				}
				return out.write(cmd, rt, doc, func() (export.Workbook, error) {
					return export.Layout(rt.Company, doc)
				}, q)
			})
		},
	}
	cmd.Flags().StringVar(&periodType, "period-type", string(reports.PeriodMonthly), "monthly, quarterly or yearly")
	cmd.Flags().IntVar(&req.Year, "year", time.Now().Year(), "report year")
	cmd.Flags().IntVar(&req.Month, "month", 0, "month for monthly reports (1-12)")
	cmd.Flags().IntVar(&req.Quarter, "quarter", 0, "quarter for quarterly reports (1-4)")
	cmd.Flags().BoolVar(&req.Save, "save", false, "ask the backend to keep the generated report")
	cmd.Flags().StringVar(&saved, "saved", "", "load a saved report by id instead of generating")
	out.bind(cmd)
	return cmd
}

func newStatementCommand(e *env) *cobra.Command {
	var from, to string
	var out output

	cmd := &cobra.Command{
		Use:     "soa <customer-id>",
		Aliases: []string{"statement"},
		Short:   "Build a customer statement of account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bounds, err := ledger.ParseFilter(string(ledger.FilterCustom), from, to)
			if err != nil {
				return err
			}
			return run(cmd, e, func(rt *Runtime, q *notify.Queue) error {
				req := reports.StatementRequest{CustomerID: args[0], From: bounds.From, To: bounds.To}
				doc, err := rt.Reports.Statement(cmd.Context(), req, q)
				if err != nil {
					return err
				}
				return out.write(cmd, rt, doc, func() (export.Workbook, error) {
					return export.Layout(rt.Company, doc)
				}, q)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "statement start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "statement end (YYYY-MM-DD)")
	out.bind(cmd)
	return cmd
}

func newVATCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vat",
		Short: "Move a saved VAT return through draft, finalized and submitted",
	}
	for _, action := range []reports.VATAction{reports.VATFinalize, reports.VATSubmit} {
		action := action
		cmd.AddCommand(&cobra.Command{
			Use:   string(action) + " <report-id>",
			Short: fmt.Sprintf("%s a VAT return", action),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, e, func(rt *Runtime, q *notify.Queue) error {
					doc, err := rt.Reports.TransitionVAT(cmd.Context(), args[0], action, q)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", doc.ID, doc.Status())
					return err
				})
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a draft VAT return",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, e, func(rt *Runtime, q *notify.Queue) error {
				return rt.Reports.DeleteVAT(cmd.Context(), args[0], q)
			})
		},
	})
	return cmd
}
