// internal/service/documents.go
package service

import (
	"context"
	"fmt"

	"github.com/duenorth/reminder-backend/internal/provider"
	"github.com/duenorth/reminder-backend/internal/repository"
)

// InvoiceDocumentGenerator renders a plain-text statement for one invoice,
// attached to the reminder email alongside the consolidated summary.
type InvoiceDocumentGenerator struct {
	Invoices repository.InvoiceRepositoryInterface
}

func (g *InvoiceDocumentGenerator) Generate(ctx context.Context, invoiceID string) (provider.Attachment, error) {
	invoices, err := g.Invoices.GetByIDs([]string{invoiceID})
	if err != nil {
		return provider.Attachment{}, err
	}
	if len(invoices) == 0 {
		return provider.Attachment{}, fmt.Errorf("invoice %s not found", invoiceID)
	}
	inv := invoices[0]

	due := inv.CollectibleCents()
	body := fmt.Sprintf("Invoice %s\nAmount due: %d.%02d %s\nDue date: %s\nStatus: %s\n",
		inv.ID, due/100, due%100, inv.Currency, inv.DueDate.Format("2006-01-02"), inv.Status)

	return provider.Attachment{
		Filename:    "invoice-" + inv.ID + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(body),
	}, nil
}

var _ DocumentGenerator = (*InvoiceDocumentGenerator)(nil)
