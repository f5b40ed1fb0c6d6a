// internal/template/renderer.go
package template

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

// Template is a reminder template as supplied by the template store.
// MaxInvoiceLines is the declared maximum number of invoice lines the body
// can display; reminders exceeding it are rejected at plan time.
type Template struct {
	Kind            string
	Locale          string
	Subject         string
	Body            string
	MaxInvoiceLines int
	MultiCurrency   bool
}

// Store looks templates up by campaign kind and customer locale.
type Store interface {
	Lookup(kind, locale string) (*Template, error)
}

// Renderer renders Liquid templates with the reminder merge data.
type Renderer struct {
	engine *liquid.Engine
}

func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	// Amount filter: cents to a human amount, {{ total_cents | money }}.
	engine.RegisterFilter("money", func(v interface{}) string {
		var cents int64
		switch n := v.(type) {
		case int64:
			cents = n
		case int:
			cents = int64(n)
		case float64:
			cents = int64(n)
		default:
			return fmt.Sprintf("%v", v)
		}
		return fmt.Sprintf("%.2f", float64(cents)/100)
	})

	// Default value filter: {{ customer_name | default: "Customer" }}.
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &Renderer{engine: engine}
}

// Render produces the subject and body for one recipient.
func (r *Renderer) Render(tpl *Template, data map[string]interface{}) (string, string, error) {
	subject, err := r.engine.ParseAndRenderString(tpl.Subject, data)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	body, err := r.engine.ParseAndRenderString(tpl.Body, data)
	if err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return strings.TrimSpace(subject), body, nil
}
