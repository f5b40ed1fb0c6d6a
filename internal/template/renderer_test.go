package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderReminder(t *testing.T) {
	r := NewRenderer()
	store := NewStaticStore(DefaultReminderTemplates()...)

	tpl, err := store.Lookup("reminder", "en")
	require.NoError(t, err)

	subject, body, err := r.Render(tpl, map[string]interface{}{
		"customer_name": "Acme Ltd",
		"invoice_count": 2,
		"total_cents":   int64(150050),
		"currency":      "EUR",
		"tier":          "tier2",
		"invoices": []map[string]interface{}{
			{"id": "INV-1", "amount_cents": int64(100000), "currency": "EUR", "due_date": "2026-01-10", "days_overdue": 45},
			{"id": "INV-2", "amount_cents": int64(50050), "currency": "EUR", "due_date": "2026-02-01", "days_overdue": 23},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Payment reminder: 2 open invoices (1500.50 EUR)", subject)
	assert.Contains(t, body, "Hello Acme Ltd")
	assert.Contains(t, body, "remain unpaid despite an earlier reminder")
	assert.Contains(t, body, "Invoice INV-1: 1000.00 EUR, due 2026-01-10 (45 days overdue)")
	assert.Contains(t, body, "Total outstanding: 1500.50 EUR")
}

func TestRenderTierTone(t *testing.T) {
	r := NewRenderer()
	tpl, err := NewStaticStore(DefaultReminderTemplates()...).Lookup("reminder", "en")
	require.NoError(t, err)

	data := func(tier string) map[string]interface{} {
		return map[string]interface{}{
			"customer_name": "Acme",
			"invoice_count": 1,
			"total_cents":   int64(1000),
			"currency":      "USD",
			"tier":          tier,
			"invoices":      []map[string]interface{}{},
		}
	}

	_, gentle, err := r.Render(tpl, data("tier1"))
	require.NoError(t, err)
	assert.Contains(t, gentle, "friendly reminder")

	_, final, err := r.Render(tpl, data("tier3"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(final, "FINAL NOTICE"))
}

func TestLookupLocaleFallback(t *testing.T) {
	store := NewStaticStore(DefaultReminderTemplates()...)

	tpl, err := store.Lookup("reminder", "de")
	require.NoError(t, err)
	assert.Equal(t, "en", tpl.Locale)

	_, err = store.Lookup("unknown_kind", "en")
	assert.Error(t, err)
}
