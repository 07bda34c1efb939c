package notify

import (
	"bytes"
	"errors"
	htmltemplate "html/template"
	"text/template"
)

// DefaultSubject is the report e-mail subject; %s is the report date.
const DefaultSubject = "ASRS Alarm Report - %s"

// DefaultHTMLTemplate renders the e-mail body.
const DefaultHTMLTemplate = `<html>
<head>
<style>
table { border-collapse: collapse; font-family: Arial, sans-serif; }
th, td { border: 1px solid #999; padding: 4px 10px; text-align: right; }
th { background-color: #f2f2f2; }
td:first-child, th:first-child { text-align: center; font-weight: bold; }
tr.total td { font-weight: bold; background-color: #fafafa; }
</style>
</head>
<body>
<h2>{{.Title}} - {{.Date}}</h2>
<p>Below is the summary of alarms by line and category:</p>
<table>
<tr><th>Line</th>{{range .Buckets}}<th>{{.}}</th>{{end}}<th>Total</th></tr>
{{range .Rows}}<tr><td>{{.Label}}</td>{{range .Counts}}<td>{{.}}</td>{{end}}<td>{{.Total}}</td></tr>
{{end}}<tr class="total"><td>{{.Total.Label}}</td>{{range .Total.Counts}}<td>{{.}}</td>{{end}}<td>{{.Total.Total}}</td></tr>
</table>
{{if .DetailURL}}<p>For more detailed information, please access the web application:</p>
<p><a href="{{.DetailURL}}" style="padding: 10px 20px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px;">Open daily report detail</a></p>
{{end}}<p>This is an automated notification. Please do not reply to this email.</p>
</body>
</html>
`

// DefaultTextTemplate renders the webhook message.
const DefaultTextTemplate = `[{{.Title}} {{.Date}}]
Total alarms: {{.Total.Total}}
{{range .Rows}}{{if .Total}}Line {{.Label}}: {{.Total}}{{range $i, $n := .Counts}}{{if $n}} | {{index $.Buckets $i}} {{$n}}{{end}}{{end}}
{{end}}{{end}}{{if .DetailURL}}Detail: {{.DetailURL}}{{end}}`

// ReportRow is one rendered matrix row.
type ReportRow struct {
	Label  string
	Counts []int
	Total  int
}

// TemplateData provides fields for rendering the daily report.
type TemplateData struct {
	Title     string
	Date      string
	Buckets   []string
	Rows      []ReportRow
	Total     ReportRow
	DetailURL string
}

// Template renders the HTML and text bodies of a report.
type Template struct {
	html *htmltemplate.Template
	text *template.Template
}

// NewTemplate parses report templates, falling back to the defaults for empty input.
func NewTemplate(htmlTpl, textTpl string) (*Template, error) {
	if htmlTpl == "" {
		htmlTpl = DefaultHTMLTemplate
	}
	if textTpl == "" {
		textTpl = DefaultTextTemplate
	}
	parsedHTML, err := htmltemplate.New("report-html").Parse(htmlTpl)
	if err != nil {
		return nil, err
	}
	parsedText, err := template.New("report-text").Parse(textTpl)
	if err != nil {
		return nil, err
	}
	return &Template{html: parsedHTML, text: parsedText}, nil
}

// Render applies both templates to data.
func (t *Template) Render(data TemplateData) (html string, text string, err error) {
	if t == nil || t.html == nil || t.text == nil {
		return "", "", errors.New("report template: nil")
	}
	var hb, tb bytes.Buffer
	if err := t.html.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := t.text.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
