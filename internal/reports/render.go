package reports

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/store"
)

// Schedule names are tenant input; the HTML body goes through html/template
// so they land escaped.
var (
	summaryHTML = htmltemplate.Must(htmltemplate.New("summary").Parse(
		`<html><body><h2>{{.Name}}</h2><p>Your {{.Period}} review report for {{.Date}} is ready.</p><p>Open your Reviewflow dashboard to see ratings, review volume and response metrics for this period.</p></body></html>`))

	summaryText = texttemplate.Must(texttemplate.New("summary").Parse(
		`{{.Name}}

Your {{.Period}} review report for {{.Date}} is ready.
Open your Reviewflow dashboard to see ratings, review volume and response metrics for this period.
`))
)

type summaryData struct {
	Name   string
	Period string
	Date   string
}

// renderSummary produces the subject and bodies for one report email. The
// analytics themselves live elsewhere; this is the notification envelope
// with the reporting period.
func renderSummary(sch store.ReportSchedule, now time.Time) (subject, htmlBody, textBody string) {
	data := summaryData{
		Name:   sch.Name,
		Period: periodLabel(sch.Frequency),
		Date:   now.Format("Jan 2, 2006"),
	}
	subject = fmt.Sprintf("%s: %s review report (%s)", data.Name, data.Period, data.Date)

	var h, t strings.Builder
	// Los templates se parsean en init; con structs de strings Execute no falla.
	_ = summaryHTML.Execute(&h, data)
	_ = summaryText.Execute(&t, data)
	return subject, h.String(), t.String()
}

func periodLabel(f store.Frequency) string {
	switch f {
	case store.Daily:
		return "daily"
	case store.Weekly:
		return "weekly"
	case store.Monthly:
		return "monthly"
	case store.Quarterly:
		return "quarterly"
	default:
		return "scheduled"
	}
}
