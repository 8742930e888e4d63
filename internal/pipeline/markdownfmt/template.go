package markdownfmt

import (
	"strconv"
	"strings"
)

// Template constrains the section ordering of the formatted markdown.
type Template struct {
	Name     string
	Sections []string
}

// DefaultTemplate orders output as header block, line-item table, summary.
var DefaultTemplate = Template{
	Name: "invoice-default",
	Sections: []string{
		"Header: invoice number, invoice date, parties, as 'key: value' lines",
		"Line Items: one markdown table with columns position, description, quantity, unit price, line total",
		"Summary: net total, tax rate, tax amount, gross total, as 'key: value' lines",
	},
}

// Instruction renders the template as prompt instructions.
func (t Template) Instruction() string {
	var b strings.Builder
	b.WriteString("Structure the document into these sections, in this order:\n")
	for i, s := range t.Sections {
		b.WriteString(strconv.Itoa(i+1) + ". " + s + "\n")
	}
	return b.String()
}
