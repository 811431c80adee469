package pages

import (
	"context"
	"io"

	"lead_flow_app_go/middleware"

	"github.com/a-h/templ"
)

// statusStyles colours lead and verification status badges
const statusStyles = `.status{padding:2px 8px;border-radius:9999px;background:#e5e7eb;font-size:.875rem}` +
	`.status[data-status="Won"],.status[data-status="PLVC_done"]{background:#dcfce7;color:#166534}` +
	`.status[data-status="Lost"],.status[data-status="Wrong Number"]{background:#fee2e2;color:#991b1b}` +
	`.status[data-status="Callback Later"]{background:#fef9c3;color:#854d0e}`

// layout wraps body in the shared HTML shell
func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		nonce := middleware.GetNonce(ctx)
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>`+templ.EscapeString(title)+` | LeadFlow</title>`+
			`<link rel="stylesheet" href="/static/css/app.css">`+
			`<style nonce="`+templ.EscapeString(nonce)+`">`+statusStyles+`</style>`+
			`</head><body class="bg-gray-50 text-gray-900">`+
			`<main class="max-w-4xl mx-auto p-6">`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}
