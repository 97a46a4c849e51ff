package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var (
	confirmRequestTmpl = template.Must(template.New("confirm_request").Parse(`<div style="font-family: ui-sans-serif, system-ui; line-height: 1.5;">
  <h2 style="margin: 0 0 12px;">Confirm your request</h2>
  <p style="margin: 0 0 12px;">Thanks for reaching out to {{.SiteName}}. Please confirm your request by clicking the button below:</p>
  <p style="margin: 18px 0;">
    <a href="{{.URL}}" style="display:inline-block;padding:10px 14px;border-radius:12px;background:#111;color:#fff;text-decoration:none;">Confirm request</a>
  </p>
  <p style="margin: 0 0 8px; color:#555;">If the button doesn't work, copy and paste this link:</p>
  <p style="margin: 0; color:#555; word-break: break-all;">{{.URL}}</p>
  <p style="margin-top: 18px; color:#777; font-size: 12px;">This link expires in {{.Expiry}}.</p>
</div>`))

	confirmSubscriptionTmpl = template.Must(template.New("confirm_subscription").Parse(`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial,sans-serif;line-height:1.6">
  <h2>Confirm your subscription</h2>
  <p>Tap the button below to confirm <b>{{.Email}}</b>.</p>
  <p><a href="{{.URL}}" style="display:inline-block;padding:10px 14px;border-radius:10px;background:#5EEAD4;color:#000;text-decoration:none;font-weight:600">Confirm subscription</a></p>
  <p>If you didn't request this, you can ignore this email.</p>
  <p style="color:#6b7280;font-size:12px">This link expires in {{.Expiry}}.</p>
</div>`))

	operatorInquiryTmpl = template.Must(template.New("operator_inquiry").Parse(`<div style="font-family: ui-sans-serif, system-ui; line-height: 1.5;">
  <h2 style="margin:0 0 12px;">New verified inquiry</h2>
  <p style="margin:0 0 8px;"><strong>Name:</strong> {{or .Name "—"}}</p>
  <p style="margin:0 0 8px;"><strong>Email:</strong> {{.Email}}</p>
  <p style="margin:0 0 8px;"><strong>Phone:</strong> {{or .Phone "—"}}</p>
  <p style="margin:12px 0 6px;"><strong>Message:</strong></p>
  <div style="padding:12px;border:1px solid #ddd;border-radius:12px;white-space:pre-wrap;">{{or .Message "—"}}</div>
  <p style="margin-top:12px;color:#777;font-size:12px;">Submitted: {{.Submitted}}{{if .Source}} via {{.Source}}{{end}}</p>
</div>`))

	leadReceivedTmpl = template.Must(template.New("lead_received").Parse(`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial,sans-serif;line-height:1.6;color:#111">
  <p>Thanks{{if .Name}}, {{.Name}}{{end}}! We received your message at <strong>{{.SiteName}}</strong>.</p>
  <p>We'll reply within one business day.</p>
  <hr style="border:none;border-top:1px solid #eee;margin:16px 0" />
  <p style="font-size:13px;color:#666;margin:0">{{.SiteName}}{{if .SiteURL}} • <a href="{{.SiteURL}}" style="color:#666;text-decoration:underline">{{.SiteURL}}</a>{{end}}</p>
</div>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// humanizeTTL renders a TTL as "24 hours" or "60 minutes".
func humanizeTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0 && d != time.Hour:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d >= time.Minute:
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", n)
	default:
		return d.String()
	}
}
