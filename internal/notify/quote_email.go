package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// PhotoLink is one attachment in the notification. URL is nil when the
// signed link could not be generated.
type PhotoLink struct {
	Name string
	URL  *string
}

// QuoteEmail is the data rendered into the staff notification.
type QuoteEmail struct {
	RequestID        string
	Name             string
	Phone            string // digits only
	PhoneDisplay     string
	Email            string
	ServiceType      string
	Location         string
	Description      string
	PreferredContact string
	FileCount        int
	SubmittedAt      time.Time
	PhotoLinks       []PhotoLink
}

// EmailOptions holds the site-level values the templates need.
type EmailOptions struct {
	BusinessName  string
	PublicBaseURL string
	TimeZone      *time.Location
	LinkTTL       time.Duration
}

type photoView struct {
	Index int
	Name  string
	URL   string
	OK    bool
}

type quoteView struct {
	QuoteEmail
	ShortID      string
	PhoneDisplay string
	TelHref      htmltemplate.URL
	Submitted    string
	Photos       []photoView
	LinkExpiry   string
	AdminURL     string
	BusinessName string
}

var quoteHTMLTemplate = htmltemplate.Must(htmltemplate.New("quote_html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>New Quote Request</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #292323; padding: 30px; text-align: center;">
    <h1 style="color: white; margin: 0; font-size: 24px;">New Quote Request</h1>
  </div>
  <div style="background: #f9f9f9; padding: 30px; border: 1px solid #e0e0e0;">
    <table style="width: 100%; border-collapse: collapse;">
      <tr><td style="padding: 10px 0; font-weight: bold; width: 140px;">Request ID:</td><td style="padding: 10px 0; font-family: monospace;">{{.ShortID}}...</td></tr>
      <tr><td style="padding: 10px 0; font-weight: bold;">Name:</td><td style="padding: 10px 0;">{{.Name}}</td></tr>
      <tr><td style="padding: 10px 0; font-weight: bold;">Phone:</td><td style="padding: 10px 0;"><a href="{{.TelHref}}" style="color: #990303;">{{.PhoneDisplay}}</a></td></tr>
      {{- if .Email}}
      <tr><td style="padding: 10px 0; font-weight: bold;">Email:</td><td style="padding: 10px 0;"><a href="mailto:{{.Email}}" style="color: #990303;">{{.Email}}</a></td></tr>
      {{- end}}
      <tr><td style="padding: 10px 0; font-weight: bold;">Service Type:</td><td style="padding: 10px 0;">{{.ServiceType}}</td></tr>
      {{- if .Location}}
      <tr><td style="padding: 10px 0; font-weight: bold;">Location:</td><td style="padding: 10px 0;">{{.Location}}</td></tr>
      {{- end}}
      {{- if .PreferredContact}}
      <tr><td style="padding: 10px 0; font-weight: bold;">Preferred Contact:</td><td style="padding: 10px 0;">{{.PreferredContact}}</td></tr>
      {{- end}}
      <tr><td style="padding: 10px 0; font-weight: bold;">Photos:</td><td style="padding: 10px 0;">{{if gt .FileCount 0}}{{.FileCount}} photo(s) uploaded{{else}}None{{end}}</td></tr>
      <tr><td style="padding: 10px 0; font-weight: bold;">Submitted:</td><td style="padding: 10px 0;">{{.Submitted}}</td></tr>
    </table>
    <div style="margin-top: 20px;">
      <h3 style="margin: 0 0 10px 0; color: #292323;">Project Description:</h3>
      <div style="background: white; padding: 15px; border: 1px solid #e0e0e0; white-space: pre-wrap;">{{.Description}}</div>
    </div>
    {{- if .Photos}}
    <div style="margin-top: 20px;">
      <h3 style="margin: 0 0 10px 0; color: #292323;">Uploaded Photos:</h3>
      <div style="background: white; padding: 15px; border: 1px solid #e0e0e0;">
        <p style="margin: 0 0 10px 0; color: #666; font-size: 12px;">&#9200; Links expire in {{.LinkExpiry}}</p>
        <table style="width: 100%;">
          {{- range .Photos}}
          {{- if .OK}}
          <tr class="photo-link"><td style="padding: 8px 0;"><a href="{{.URL}}" style="color: #990303; text-decoration: none;" target="_blank">&#128247; View Photo {{.Index}}</a> <span style="color: #666; font-size: 12px;">({{.Name}})</span></td></tr>
          {{- else}}
          <tr class="photo-link"><td style="padding: 8px 0; color: #666;">&#128247; Photo {{.Index}}: {{.Name}} <span style="color: #999;">(link unavailable)</span></td></tr>
          {{- end}}
          {{- end}}
        </table>
      </div>
    </div>
    {{- end}}
    {{- if .AdminURL}}
    <div style="margin-top: 30px; text-align: center;">
      <a href="{{.AdminURL}}" style="display: inline-block; background: #990303; color: white; padding: 12px 30px; text-decoration: none; font-weight: bold;">View in Admin Dashboard</a>
    </div>
    {{- end}}
  </div>
  <div style="padding: 20px; text-align: center; color: #666; font-size: 12px;">
    <p>This is an automated notification from {{.BusinessName}} website.</p>
  </div>
</body>
</html>
`))

var quoteTextTemplate = texttemplate.Must(texttemplate.New("quote_text").Parse(`NEW QUOTE REQUEST
==================

Request ID: {{.ShortID}}...
Name: {{.Name}}
Phone: {{.PhoneDisplay}}
{{- if .Email}}
Email: {{.Email}}
{{- end}}
Service Type: {{.ServiceType}}
{{- if .Location}}
Location: {{.Location}}
{{- end}}
{{- if .PreferredContact}}
Preferred Contact: {{.PreferredContact}}
{{- end}}
Photos: {{if gt .FileCount 0}}{{.FileCount}} photo(s) uploaded{{else}}None{{end}}
Submitted: {{.Submitted}}

PROJECT DESCRIPTION:
{{.Description}}
{{- if .Photos}}

UPLOADED PHOTOS (links expire in {{.LinkExpiry}}):
{{- range .Photos}}
{{- if .OK}}
  - Photo {{.Index}} ({{.Name}}): {{.URL}}
{{- else}}
  - Photo {{.Index}}: {{.Name}} (link unavailable)
{{- end}}
{{- end}}
{{- end}}
{{- if .AdminURL}}

View in admin: {{.AdminURL}}
{{- end}}

---
This is an automated notification from {{.BusinessName}} website.
`))

// BuildQuoteEmail renders the subject, HTML and plain text bodies. User
// supplied fields are escaped by html/template in the HTML body.
func BuildQuoteEmail(data QuoteEmail, opts EmailOptions) (subject, html, text string, err error) {
	view := newQuoteView(data, opts)

	var htmlBuf bytes.Buffer
	if err := quoteHTMLTemplate.Execute(&htmlBuf, view); err != nil {
		return "", "", "", fmt.Errorf("notify: render html: %w", err)
	}
	var textBuf bytes.Buffer
	if err := quoteTextTemplate.Execute(&textBuf, view); err != nil {
		return "", "", "", fmt.Errorf("notify: render text: %w", err)
	}

	subject = fmt.Sprintf("[Quote Request] %s — %s", oneLine(data.ServiceType), oneLine(data.Name))
	return subject, htmlBuf.String(), textBuf.String(), nil
}

func newQuoteView(data QuoteEmail, opts EmailOptions) quoteView {
	loc := opts.TimeZone
	if loc == nil {
		loc = time.UTC
	}
	ttl := opts.LinkTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	business := opts.BusinessName
	if business == "" {
		business = "F&J's Stone Services"
	}

	shortID := data.RequestID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	display := data.PhoneDisplay
	if display == "" {
		display = data.Phone
	}
	submitted := data.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}

	view := quoteView{
		QuoteEmail:   data,
		ShortID:      shortID,
		PhoneDisplay: display,
		TelHref:      telHref(data.Phone),
		Submitted:    submitted.In(loc).Format("Jan 2, 2006 at 3:04 PM MST"),
		LinkExpiry:   humanizeDuration(ttl),
		BusinessName: business,
	}
	if base := strings.TrimRight(opts.PublicBaseURL, "/"); base != "" && data.RequestID != "" {
		view.AdminURL = base + "/admin/quotes/" + data.RequestID
	}
	for i, link := range data.PhotoLinks {
		pv := photoView{Index: i + 1, Name: link.Name}
		if link.URL != nil && *link.URL != "" {
			pv.URL = *link.URL
			pv.OK = true
		}
		view.Photos = append(view.Photos, pv)
	}
	return view
}

// telHref builds a tel: link. Only digits reach the URL, so it is safe to
// mark as trusted for html/template, which otherwise rejects the scheme.
func telHref(phone string) htmltemplate.URL {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	return htmltemplate.URL("tel:+1" + d)
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0 && d >= time.Hour:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0 && d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
