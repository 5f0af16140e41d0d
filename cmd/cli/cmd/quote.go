package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"apparel-pricing/core/output"
	"apparel-pricing/core/quote"
	"apparel-pricing/internal/config"
	apperr "apparel-pricing/internal/errors"
	"apparel-pricing/internal/store"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Save and look up quotes",
}

var quoteSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Price an order and save it as a quote",
	Long: `Price an order and save it as a quote valid for 30 days.

Quote IDs look like EMB0314-3: the product line's prefix, the month and day,
and a sequence that restarts every day.`,
	RunE: runQuoteSave,
}

var quoteShowCmd = &cobra.Command{
	Use:   "show <quote-id>",
	Short: "Show a saved quote",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuoteShow,
}

var quoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent quotes",
	RunE:  runQuoteList,
}

var (
	quoteDB       string
	quoteTarget   target
	quoteOrder    string
	quotePrefix   string
	quoteCustomer quote.Customer
	quoteNotes    string
	quoteFormat   string
	quoteLimit    int
)

func init() {
	quoteCmd.AddCommand(quoteSaveCmd)
	quoteCmd.AddCommand(quoteShowCmd)
	quoteCmd.AddCommand(quoteListCmd)

	quoteCmd.PersistentFlags().StringVar(&quoteDB, "db", "", "quote database file (default from config)")

	quoteTarget.register(quoteSaveCmd)
	quoteSaveCmd.Flags().StringVarP(&quoteOrder, "order", "o", "", "order JSON file, or - for stdin [REQUIRED]")
	quoteSaveCmd.Flags().StringVar(&quotePrefix, "prefix", "", "quote ID prefix (default: the product line's)")
	quoteSaveCmd.Flags().StringVar(&quoteCustomer.Name, "customer", "", "customer name [REQUIRED]")
	quoteSaveCmd.Flags().StringVar(&quoteCustomer.Email, "email", "", "customer email")
	quoteSaveCmd.Flags().StringVar(&quoteCustomer.Company, "company", "", "customer company")
	quoteSaveCmd.Flags().StringVar(&quoteNotes, "notes", "", "free-form notes")
	_ = quoteSaveCmd.MarkFlagRequired("order")
	_ = quoteSaveCmd.MarkFlagRequired("customer")

	quoteShowCmd.Flags().StringVarP(&quoteFormat, "format", "f", "cli", "output format (cli, json)")
	quoteListCmd.Flags().IntVarP(&quoteLimit, "limit", "n", 20, "number of quotes to list")
}

func openStore() (*store.Store, error) {
	path := quoteDB
	if path == "" {
		path = config.Get().Store.DatabasePath
	}
	if path == "" {
		return nil, apperr.Config("no quote database configured; pass --db")
	}
	return store.Open(path, nil)
}

func runQuoteSave(cmd *cobra.Command, args []string) error {
	order, err := readOrder(cmd.InOrStdin(), quoteOrder)
	if err != nil {
		return err
	}
	cat, source, err := openSources()
	if err != nil {
		return err
	}
	engine, err := resolveEngine(cmd, cat, source, quoteTarget)
	if err != nil {
		return err
	}
	result, err := engine.PriceOrder(*order)
	if err != nil {
		return err
	}

	prefix := quotePrefix
	if prefix == "" {
		prefix = engine.Line().QuotePrefix
	}
	rec, err := quote.New(prefix, quoteCustomer, result, time.Now())
	if err != nil {
		return err
	}
	rec.Notes = quoteNotes

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Save(cmd.Context(), rec)
	if err != nil {
		return err
	}

	w := newWriter(cmd.OutOrStdout())
	w.Success("Saved quote %s for %s: %s (valid until %s)",
		id, rec.Customer.Name, output.Money(result.GrandTotal), rec.ExpiresAt.Format("2006-01-02"))
	return nil
}

func runQuoteShow(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewRegistry(noColor).Get(quoteFormat)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatCLI {
		w := newWriter(cmd.OutOrStdout())
		w.Header("Quote " + rec.ID)
		w.Println("  Customer: %s", customerLabel(rec.Customer))
		w.Println("  Created:  %s", rec.CreatedAt.Local().Format("2006-01-02 15:04"))
		if rec.Status(time.Now()) == quote.StatusExpired {
			w.Warning("Expired on %s; prices must be re-quoted", rec.ExpiresAt.Local().Format("2006-01-02"))
		} else {
			w.Println("  Valid to: %s", rec.ExpiresAt.Local().Format("2006-01-02"))
		}
		if rec.Notes != "" {
			w.Println("  Notes:    %s", rec.Notes)
		}
	}
	return formatter.Render(cmd.OutOrStdout(), rec.Result)
}

func runQuoteList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	quotes, err := st.List(cmd.Context(), quoteLimit)
	if err != nil {
		return err
	}

	w := newWriter(cmd.OutOrStdout())
	if len(quotes) == 0 {
		w.Info("No saved quotes")
		return nil
	}
	now := time.Now()
	table := w.NewTable("ID", "Customer", "Line", "Qty", "Total", "Status").AlignRight(3, 4)
	for _, q := range quotes {
		status := string(quote.StatusOpen)
		if !now.Before(q.ExpiresAt) {
			status = string(quote.StatusExpired)
		}
		table.AddRow(q.ID, q.CustomerName, q.ProductLine, fmt.Sprintf("%d", q.TotalQuantity), output.Money(q.GrandTotal), status)
	}
	table.Render()
	return nil
}

func customerLabel(c quote.Customer) string {
	label := c.Name
	if c.Company != "" {
		label += " (" + c.Company + ")"
	}
	if c.Email != "" {
		label += " <" + c.Email + ">"
	}
	return label
}
