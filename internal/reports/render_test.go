package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/store"
)

func TestRenderSummary_EscapesScheduleName(t *testing.T) {
	sch := store.ReportSchedule{
		Name:      `<script>alert("x")</script>`,
		Frequency: store.Weekly,
	}
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	subject, htmlBody, textBody := renderSummary(sch, now)

	if strings.Contains(htmlBody, "<script>") {
		t.Fatalf("schedule name not escaped in html: %s", htmlBody)
	}
	if !strings.Contains(htmlBody, "&lt;script&gt;") {
		t.Fatalf("escaped name missing from html: %s", htmlBody)
	}
	// El texto plano y el subject van tal cual
	if !strings.Contains(textBody, sch.Name) {
		t.Fatalf("text body lost the name: %s", textBody)
	}
	if !strings.Contains(subject, "weekly review report (Aug 31, 2026)") {
		t.Fatalf("subject = %q", subject)
	}
}

func TestRenderSummary_PeriodAndDate(t *testing.T) {
	sch := store.ReportSchedule{Name: "Acme Dental", Frequency: store.Monthly}
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, htmlBody, textBody := renderSummary(sch, now)
	for _, body := range []string{htmlBody, textBody} {
		if !strings.Contains(body, "monthly review report for Feb 1, 2026") {
			t.Fatalf("body missing period/date: %s", body)
		}
	}
	if !strings.Contains(htmlBody, "<h2>Acme Dental</h2>") {
		t.Fatalf("plain name should render untouched: %s", htmlBody)
	}
}
