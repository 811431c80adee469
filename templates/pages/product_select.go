package pages

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// ProductOption is one insurance product a won lead can be verified for
type ProductOption struct {
	Type   string
	Label  string
	Href   string
	Status string // empty when no record exists yet
}

// ProductSelectView holds the data for the product selection page
type ProductSelectView struct {
	LeadID    string
	LeadName  string
	LeadPhone string
	Options   []ProductOption
}

// ProductSelect renders the product selection page of a won lead
func ProductSelect(view ProductSelectView) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1 class="text-2xl font-semibold mb-1">Select insurance product</h1>`)
		fmt.Fprintf(&b, `<p class="text-gray-600 mb-6">%s &middot; %s</p>`,
			templ.EscapeString(view.LeadName), templ.EscapeString(view.LeadPhone))
		b.WriteString(`<ul class="grid grid-cols-2 gap-4" id="product-options">`)
		for _, opt := range view.Options {
			fmt.Fprintf(&b, `<li data-type="%s" class="border rounded-lg p-4 bg-white">`, templ.EscapeString(opt.Type))
			fmt.Fprintf(&b, `<a class="font-medium text-blue-700" href="%s">%s</a>`,
				templ.EscapeString(string(templ.URL(opt.Href))), templ.EscapeString(opt.Label))
			if opt.Status != "" {
				fmt.Fprintf(&b, `<span class="ml-2 text-xs text-gray-500">%s</span>`, templ.EscapeString(opt.Status))
			} else {
				b.WriteString(`<span class="ml-2 text-xs text-green-700">new</span>`)
			}
			b.WriteString(`</li>`)
		}
		b.WriteString(`</ul>`)
		fmt.Fprintf(&b, `<p class="mt-6"><a href="/leads/%s">Back to lead</a></p>`, templ.EscapeString(view.LeadID))
		_, err := io.WriteString(w, b.String())
		return err
	})
	return layout("Select product", body)
}
