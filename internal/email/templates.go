package email

import (
	"fmt"
	"html"
	"strings"
)

// AlertLine is one stock line of a failed side effect
type AlertLine struct {
	ProductID string
	Name      string
	Quantity  int
}

// SideEffectAlert describes a side effect that needs a manual retry
type SideEffectAlert struct {
	OrderID    string
	Action     string
	Trigger    string
	Error      string
	OrderTotal string
	Lines      []AlertLine
}

// BuildSideEffectFailureBody builds the HTML body of a failed side effect alert
func BuildSideEffectFailureBody(alert SideEffectAlert) string {
	var linesHTML strings.Builder
	for _, line := range alert.Lines {
		name := line.Name
		if name == "" {
			name = line.ProductID
		}
		linesHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 8px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">%d</td>
			</tr>`,
			html.EscapeString(name),
			line.Quantity,
		))
	}

	linesSection := ""
	if linesHTML.Len() > 0 {
		linesSection = fmt.Sprintf(`<table style="width: 100%%; border-collapse: collapse; margin: 16px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 8px; text-align: left;">Product</th>
					<th style="padding: 8px; text-align: right;">Quantity</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
		</table>`, linesHTML.String())
	}

	total := ""
	if alert.OrderTotal != "" {
		total = fmt.Sprintf(`<p style="margin: 4px 0;"><strong>Order total:</strong> %s</p>`, html.EscapeString(alert.OrderTotal))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #c0392b; padding: 20px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 20px;">Status updated, but %s action failed</h1>
	</div>
	<div style="background: #fff; padding: 20px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">The order change was saved. The follow-up action did not run and needs a manual retry.</p>
		<p style="margin: 4px 0;"><strong>Order:</strong> %s</p>
		<p style="margin: 4px 0;"><strong>Triggered by:</strong> %s</p>
		%s
		<p style="margin: 4px 0;"><strong>Error:</strong> <code>%s</code></p>
		%s
		<p style="margin-bottom: 0;">Retry with <code>POST /orders/%s/side-effects/%s/retry</code> or <code>orderctl retry</code>.</p>
	</div>
</body>
</html>`,
		html.EscapeString(alert.Action),
		html.EscapeString(alert.OrderID),
		html.EscapeString(alert.Trigger),
		total,
		html.EscapeString(alert.Error),
		linesSection,
		html.EscapeString(alert.OrderID),
		html.EscapeString(alert.Action),
	)
}
