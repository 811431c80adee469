package pages

import (
	"context"
	"fmt"
	"io"
	"strings"

	"lead_flow_app_go/models"

	"github.com/a-h/templ"
)

// LeadDetailView holds the data for the lead page
type LeadDetailView struct {
	Lead             *models.Lead
	Thread           []models.LeadActivity
	CanSelectProduct bool // lead is Won
}

// LeadDetail renders a lead with its thread
func LeadDetail(view LeadDetailView) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		lead := view.Lead
		var b strings.Builder
		fmt.Fprintf(&b, `<h1 class="text-2xl font-semibold">%s</h1>`, templ.EscapeString(lead.Name))
		fmt.Fprintf(&b, `<p class="text-gray-600">%s`, templ.EscapeString(lead.Phone))
		if lead.Email != "" {
			fmt.Fprintf(&b, ` &middot; %s`, templ.EscapeString(lead.Email))
		}
		b.WriteString(`</p>`)
		fmt.Fprintf(&b, `<p class="mt-2"><span class="status" data-status="%s">%s</span></p>`,
			templ.EscapeString(lead.Status), templ.EscapeString(lead.Status))
		if view.CanSelectProduct {
			fmt.Fprintf(&b, `<p class="mt-4"><a class="text-blue-700" href="/leads/%s/products">Start verification</a></p>`,
				templ.EscapeString(lead.ID))
		}

		b.WriteString(`<h2 class="text-lg font-semibold mt-8 mb-2">Activity</h2><ol id="lead-thread" class="space-y-2">`)
		for _, entry := range view.Thread {
			fmt.Fprintf(&b, `<li><span class="font-medium">%s</span> %s <span class="text-xs text-gray-500">%s &middot; %s</span></li>`,
				templ.EscapeString(entry.Action),
				templ.EscapeString(entry.Details),
				templ.EscapeString(entry.PerformedByName),
				entry.CreatedAt.Format("Jan 2, 2006 3:04 PM"))
		}
		b.WriteString(`</ol>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
	return layout(view.Lead.Name, body)
}
