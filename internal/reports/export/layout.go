package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhfoods/ledgerdesk/internal/format"
	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/reports"
)

// Company is printed in every export header.
type Company struct {
	Name    string
	Address string
	TRN     string
}

func header(c Company, title string, period string, generated time.Time) Header {
	return Header{
		CompanyName:    c.Name,
		CompanyAddress: c.Address,
		TRN:            c.TRN,
		Title:          title,
		PeriodLabel:    period,
		GeneratedAt:    generated,
	}
}

// Layout picks the fixed layout for the document's report type.
func Layout(c Company, doc reports.Document) (Workbook, error) {
	switch {
	case doc.TrialBalance != nil:
		return TrialBalanceWorkbook(c, doc), nil
	case doc.ProfitLoss != nil:
		return ProfitLossWorkbook(c, doc), nil
	case doc.BalanceSheet != nil:
		return BalanceSheetWorkbook(c, doc), nil
	case doc.VAT != nil:
		return VATWorkbook(c, doc), nil
	case doc.Statement != nil:
		return StatementWorkbook(c, doc), nil
	}
	return Workbook{}, fmt.Errorf("export: %s document has no body", doc.Type)
}

func base(c Company, doc reports.Document) Workbook {
	return Workbook{
		FileToken: doc.Type.FileToken(),
		Year:      doc.Period.Year,
		Month:     doc.Period.Month,
		Header:    header(c, doc.Type.Title(), doc.Period.Label, doc.GeneratedAt),
	}
}

func statusRow(s *Sheet, balanced bool, diff decimal.Decimal) {
	if balanced {
		s.add(RowStatus, 0, Text("Status"), Text("Balanced"))
		return
	}
	s.add(RowStatus, 0, Text("Status"), Text("NOT BALANCED - difference "+format.Accounting(diff)))
}

// TrialBalanceWorkbook columns: Code, Account Name, Group, Debit, Credit.
func TrialBalanceWorkbook(c Company, doc reports.Document) Workbook {
	tb := doc.TrialBalance
	wb := base(c, doc)
	s := Sheet{Name: "Trial Balance", Columns: []Column{
		{Title: "Code", Width: 12},
		{Title: "Account Name", Width: 36},
		{Title: "Group", Width: 16},
		{Title: "Debit", Width: 16, Numeric: true},
		{Title: "Credit", Width: 16, Numeric: true},
	}}
	for _, r := range tb.Rows {
		s.add(RowItem, 0, Text(r.Code), Text(r.Name), Text(r.Group), Amount(r.Debit), Amount(r.Credit))
	}
	s.add(RowTotal, 0, Text(""), Text("Total"), Text(""), Amount(tb.TotalDebit), Amount(tb.TotalCredit))
	s.add(RowSubtotal, 0, Text(""), Text("Difference"), Text(""), Amount(tb.Difference), Text(""))
	statusRow(&s, tb.IsBalanced, tb.Difference)
	wb.Sheets = []Sheet{s}
	return wb
}

var amountColumns = []Column{
	{Title: "Code", Width: 14},
	{Title: "Particulars", Width: 48},
	{Title: "Amount", Width: 18, Numeric: true},
}

// writeSection emits a section heading, its items, its children and a total line.
func writeSection(s *Sheet, sec reports.Section, level int) {
	s.add(RowSection, level, Text(""), Text(sec.Label))
	for _, l := range sec.Lines {
		s.add(RowItem, level+1, Text(l.Code), Text(l.Name), Amount(l.Amount))
	}
	for _, child := range sec.Children {
		writeSection(s, child, level+1)
	}
	kind := RowSubtotal
	if level == 0 {
		kind = RowTotal
	}
	s.add(kind, level, Text(""), Text("Total "+sec.Label), Amount(sec.Total))
}

// ProfitLossWorkbook columns: Code, Particulars, Amount.
func ProfitLossWorkbook(c Company, doc reports.Document) Workbook {
	pl := doc.ProfitLoss
	wb := base(c, doc)
	s := Sheet{Name: "Profit & Loss", Columns: amountColumns}
	writeSection(&s, pl.Revenue, 0)
	s.blank()
	writeSection(&s, pl.CostOfSales, 0)
	s.add(RowTotal, 0, Text(""), Text("Gross Profit"), Amount(pl.GrossProfit))
	s.blank()
	writeSection(&s, pl.Expenses, 0)
	s.blank()
	label := "Net Profit"
	if !pl.IsProfit() {
		label = "Net Loss"
	}
	s.add(RowTotal, 0, Text(""), Text(label), Amount(pl.NetProfit))
	s.add(RowStatus, 0, Text(""), Text("Profit Margin"), Text(pl.ProfitMargin.StringFixed(2)+"%"))
	wb.Sheets = []Sheet{s}
	return wb
}

// BalanceSheetWorkbook columns: Code, Particulars, Amount.
func BalanceSheetWorkbook(c Company, doc reports.Document) Workbook {
	bs := doc.BalanceSheet
	wb := base(c, doc)
	s := Sheet{Name: "Balance Sheet", Columns: amountColumns}
	writeSection(&s, bs.Assets, 0)
	s.blank()
	writeSection(&s, bs.Liabilities, 0)
	s.blank()
	writeSection(&s, bs.Equity, 0)
	s.blank()
	s.add(RowTotal, 0, Text(""), Text("Total Liabilities & Equity"), Amount(bs.Summary.TotalLiabilitiesAndEquity))
	s.add(RowSubtotal, 0, Text(""), Text("Difference"), Amount(bs.Summary.Difference))
	statusRow(&s, bs.Summary.IsBalanced, bs.Summary.Difference)
	wb.Sheets = []Sheet{s}
	return wb
}

func vatColumns(party string) []Column {
	return []Column{
		{Title: "Date", Width: 12},
		{Title: "Invoice No", Width: 16},
		{Title: party, Width: 30},
		{Title: "TRN", Width: 18},
		{Title: "Taxable Amount", Width: 16, Numeric: true},
		{Title: "VAT Amount", Width: 14, Numeric: true},
		{Title: "Total", Width: 16, Numeric: true},
	}
}

func writeVATBook(s *Sheet, label string, b reports.VATBook) {
	s.add(RowSection, 0, Text(label))
	for _, l := range b.Lines {
		s.add(RowItem, 1, Date(l.Date), Text(l.InvoiceNo), Text(l.PartyName), Text(l.TRN),
			Amount(l.TaxableAmount), Amount(l.VATAmount), Amount(l.Total))
	}
	s.add(RowSubtotal, 0, Text(""), Text(""), Text("Total "+label), Text(""),
		Amount(b.TotalTaxable), Amount(b.TotalVAT), Amount(b.TotalTaxable.Add(b.TotalVAT)))
}

// VATWorkbook produces three sheets. Summary columns: Description, Amount. Sales and
// Purchases columns: Date, Invoice No, party, TRN, Taxable Amount, VAT Amount, Total.
func VATWorkbook(c Company, doc reports.Document) Workbook {
	vat := doc.VAT
	wb := base(c, doc)
	sum := vat.Summary

	summary := Sheet{Name: "Summary", Columns: []Column{
		{Title: "Description", Width: 48},
		{Title: "Amount", Width: 18, Numeric: true},
	}}
	summary.add(RowItem, 0, Text("Output VAT on Sales"), Amount(vat.Sales.TotalVAT))
	summary.add(RowItem, 0, Text("Less: VAT on Sales Returns"), Amount(vat.SalesReturns.TotalVAT))
	summary.add(RowSubtotal, 0, Text("Total Output VAT"), Amount(sum.TotalOutputVAT))
	summary.blank()
	summary.add(RowItem, 0, Text("Input VAT on Purchases"), Amount(vat.Purchases.TotalVAT))
	summary.add(RowItem, 0, Text("Less: VAT on Purchase Returns"), Amount(vat.PurchaseReturns.TotalVAT))
	summary.add(RowSubtotal, 0, Text("Total Input VAT"), Amount(sum.TotalInputVAT))
	summary.blank()
	summary.add(RowTotal, 0, Text("Net VAT "+sum.Position()), Amount(sum.NetVATPayable))
	summary.add(RowStatus, 0, Text("Status"), Text(string(vat.Status)))

	sales := Sheet{Name: "Sales", Columns: vatColumns("Customer")}
	writeVATBook(&sales, "Sales", vat.Sales)
	sales.blank()
	writeVATBook(&sales, "Sales Returns", vat.SalesReturns)

	purchases := Sheet{Name: "Purchases", Columns: vatColumns("Vendor")}
	writeVATBook(&purchases, "Purchases", vat.Purchases)
	purchases.blank()
	writeVATBook(&purchases, "Purchase Returns", vat.PurchaseReturns)

	wb.Sheets = []Sheet{summary, sales, purchases}
	return wb
}

// StatementWorkbook produces two sheets. Statement columns: Date, Type, Reference,
// Description, Debit, Credit, Balance. Excess Payments columns: Date, Reference, Amount,
// Allocated, Unallocated, Type.
func StatementWorkbook(c Company, doc reports.Document) Workbook {
	st := doc.Statement
	wb := base(c, doc)
	wb.Header.Subtitle = st.Customer.Name
	if st.Customer.TRN != "" {
		wb.Header.Subtitle += " (TRN " + st.Customer.TRN + ")"
	}

	s := Sheet{Name: "Statement", Columns: []Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 16},
		{Title: "Reference", Width: 16},
		{Title: "Description", Width: 32},
		{Title: "Debit", Width: 14, Numeric: true},
		{Title: "Credit", Width: 14, Numeric: true},
		{Title: "Balance", Width: 16, Numeric: true},
	}}
	s.add(RowSubtotal, 0, Date(st.From), Text(""), Text(""), Text("Opening Balance"), Text(""), Text(""), Amount(st.Opening))
	for _, e := range st.Entries {
		s.add(RowItem, 0, Date(e.Date), Text(e.Type), Text(e.Reference), Text(e.Description),
			Amount(e.Debit), Amount(e.Credit), Amount(e.Balance))
	}
	s.add(RowTotal, 0, Text(""), Text(""), Text(""), Text("Total"), Amount(st.TotalDebit), Amount(st.TotalCredit), Text(""))
	s.add(RowTotal, 0, Date(st.To), Text(""), Text(""), Text("Closing Balance"), Text(""), Text(""), Amount(st.Closing))

	ex := Sheet{Name: "Excess Payments", Columns: []Column{
		{Title: "Date", Width: 12},
		{Title: "Reference", Width: 18},
		{Title: "Amount", Width: 16, Numeric: true},
		{Title: "Allocated", Width: 16, Numeric: true},
		{Title: "Unallocated", Width: 16, Numeric: true},
		{Title: "Type", Width: 12},
	}}
	for _, p := range st.Excess {
		kind := "Advance"
		if p.IsPartial {
			kind = "Partial"
		}
		ex.add(RowItem, 0, Date(p.Date), Text(p.Reference), Amount(p.Amount), Amount(p.Allocated), Amount(p.Unallocated), Text(kind))
	}
	ex.add(RowSubtotal, 0, Text(""), Text("Partial payments"), Text(""), Text(""), Amount(st.TotalPartial), Text(""))
	ex.add(RowSubtotal, 0, Text(""), Text("Advances"), Text(""), Text(""), Amount(st.TotalAdvance), Text(""))
	ex.add(RowTotal, 0, Text(""), Text("Total Excess"), Text(""), Text(""), Amount(st.TotalExcess), Text(""))

	wb.Sheets = []Sheet{s, ex}
	return wb
}

// LedgerWorkbook lays out one account ledger. Columns: Date, Voucher Type, Voucher No,
// Reference, Party, Narration, Debit, Credit, Balance.
func LedgerWorkbook(c Company, l ledger.Ledger, generated time.Time, period string) Workbook {
	acc := l.Account.Base()
	name := acc.Name
	if acc.ID != "" {
		name = acc.ID + " " + name
	}
	wb := Workbook{
		FileToken: l.Account.Kind().Slug() + "-ledger",
		Year:      generated.Year(),
		Header:    header(c, "Ledger - "+name, period, generated),
	}
	if l.Filter.Type == ledger.FilterMonth || l.Filter.Type == ledger.FilterDay {
		wb.Month = int(generated.Month())
	}
	side := "Dr"
	if !l.DebitNormal {
		side = "Cr"
	}
	wb.Header.Subtitle = fmt.Sprintf("%s account, %s-normal, closing %s", l.Account.Kind(), side, format.DrCr(l.Closing, l.DebitNormal))

	s := Sheet{Name: "Ledger", Columns: []Column{
		{Title: "Date", Width: 12},
		{Title: "Voucher Type", Width: 18},
		{Title: "Voucher No", Width: 14},
		{Title: "Reference", Width: 14},
		{Title: "Party", Width: 22},
		{Title: "Narration", Width: 28},
		{Title: "Debit", Width: 14, Numeric: true},
		{Title: "Credit", Width: 14, Numeric: true},
		{Title: "Balance", Width: 16, Numeric: true},
	}}
	s.add(RowSubtotal, 0, Text(""), Text(""), Text(""), Text(""), Text(""), Text("Opening Balance"), Text(""), Text(""), Amount(l.Opening))
	for _, tx := range l.Transactions {
		s.add(RowItem, 0, Date(tx.Date), Text(tx.Type), Text(tx.VoucherNo), Text(tx.ReferenceNo), Text(tx.PartyName),
			Text(tx.Narration), Amount(tx.Debit), Amount(tx.Credit), Amount(tx.RunningBalance))
	}
	s.add(RowTotal, 0, Text(""), Text(""), Text(""), Text(""), Text(""), Text("Total"), Amount(l.TotalDebit), Amount(l.TotalCredit), Text(""))
	s.add(RowTotal, 0, Text(""), Text(""), Text(""), Text(""), Text(""), Text("Closing Balance"), Text(""), Text(""), Amount(l.Closing))
	wb.Sheets = []Sheet{s}
	return wb
}
