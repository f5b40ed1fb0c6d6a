// internal/template/static_store.go
package template

import "fmt"

// StaticStore is an in-process Store keyed by kind and locale, with a
// fallback to "en". The real template store is an external collaborator;
// this covers development and tests.
type StaticStore struct {
	templates map[string]*Template
}

func NewStaticStore(templates ...*Template) *StaticStore {
	s := &StaticStore{templates: make(map[string]*Template)}
	for _, t := range templates {
		s.templates[t.Kind+"|"+t.Locale] = t
	}
	return s
}

func (s *StaticStore) Lookup(kind, locale string) (*Template, error) {
	if t, ok := s.templates[kind+"|"+locale]; ok {
		return t, nil
	}
	if t, ok := s.templates[kind+"|en"]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("no template for kind %q locale %q", kind, locale)
}

var _ Store = (*StaticStore)(nil)

// DefaultReminderTemplates returns the built-in tiered reminder templates
// used by the seeded demo. Tone follows the escalation tier.
func DefaultReminderTemplates() []*Template {
	return []*Template{
		{
			Kind:            "reminder",
			Locale:          "en",
			Subject:         "Payment reminder: {{ invoice_count }} open invoice{% if invoice_count > 1 %}s{% endif %} ({{ total_cents | money }} {{ currency }})",
			MaxInvoiceLines: 10,
			Body: `Hello {{ customer_name | default: "Customer" }},

{% if tier == "tier1" %}This is a friendly reminder that the following invoices are awaiting payment:{% elsif tier == "tier2" %}Our records show the following invoices remain unpaid despite an earlier reminder:{% else %}FINAL NOTICE: the invoices below are significantly overdue and require immediate attention:{% endif %}

{% for inv in invoices %}- Invoice {{ inv.id }}: {{ inv.amount_cents | money }} {{ inv.currency }}, due {{ inv.due_date }} ({{ inv.days_overdue }} days overdue)
{% endfor %}
Total outstanding: {{ total_cents | money }} {{ currency }}

Please arrange payment at your earliest convenience.
`,
		},
	}
}
