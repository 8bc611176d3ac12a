// Package export renders a survey's results as downloadable files: an XLSX
// workbook (summary, per-question statistics, raw responses, insights) and a
// CSV of raw responses.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-survey-backend/internal/analytics"
	"github.com/tbourn/go-survey-backend/internal/domain"
)

// Content types of the produced files.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// Sheet names of the XLSX workbook, in order.
const (
	SheetSummary   = "Summary"
	SheetQuestions = "Question Statistics"
	SheetRaw       = "Raw Responses"
	SheetInsights  = "Insights"
)

const notAvailable = "N/A"

// XLSX builds the results workbook. generatedAt is written on the summary
// sheet.
func XLSX(survey *domain.Survey, report *analytics.SurveyAnalytics, responses []domain.Response, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetQuestions, SheetRaw, SheetInsights} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	summary := [][]any{
		{"Survey Title", survey.Title},
		{"Survey Purpose", survey.Purpose},
		{"Total Responses", report.TotalResponses},
		{"Response Rate", fmt.Sprintf("%d%%", report.ResponseRate)},
		{"Completion Rate", fmt.Sprintf("%d%%", report.CompletionRate)},
		{"Generated At", generatedAt.UTC().Format(time.RFC3339)},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return nil, err
	}

	questions := [][]any{{"Question", "Type", "Total Responses", "Response Rate", "Average Rating", "Top Option"}}
	for _, st := range report.QuestionStatistics {
		questions = append(questions, []any{
			st.QuestionText,
			string(st.QuestionType),
			strconv.Itoa(st.TotalResponses),
			fmt.Sprintf("%d%%", st.ResponseRate),
			averageCell(st.AverageRating),
			topOptionCell(st.OptionCounts),
		})
	}
	if err := writeRows(f, SheetQuestions, questions); err != nil {
		return nil, err
	}

	raw := [][]any{toAny(rawHeader(survey))}
	for _, r := range responses {
		raw = append(raw, toAny(rawRow(survey, r, notAvailable)))
	}
	if err := writeRows(f, SheetRaw, raw); err != nil {
		return nil, err
	}

	insights := [][]any{{"Type", "Title", "Description", "Severity", "Question ID"}}
	for _, in := range report.Insights {
		insights = append(insights, []any{
			string(in.Type),
			in.Title,
			in.Description,
			orNA(string(in.Severity)),
			orNA(in.QuestionID),
		})
	}
	if err := writeRows(f, SheetInsights, insights); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CSV renders the raw responses, one row per response and one column per
// question in declaration order.
func CSV(survey *domain.Survey, responses []domain.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(rawHeader(survey)); err != nil {
		return nil, err
	}
	for _, r := range responses {
		if err := w.Write(rawRow(survey, r, "")); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

var unsafeRE = regexp.MustCompile(`[^A-Za-z0-9]`)

// Filename returns "survey-results-<title>-<YYYY-MM-DD>.<ext>" where title
// has its accents folded and every other non-alphanumeric rune replaced by
// an underscore.
func Filename(title, ext string, now time.Time) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	return fmt.Sprintf("survey-results-%s-%s.%s", unsafeRE.ReplaceAllString(folded, "_"), now.UTC().Format("2006-01-02"), ext)
}

func rawHeader(survey *domain.Survey) []string {
	h := []string{"Response ID", "Submitted At", "Anonymous", "Respondent Name", "Respondent Email"}
	for _, q := range survey.Questions {
		h = append(h, q.Text)
	}
	return h
}

func rawRow(survey *domain.Survey, r domain.Response, missing string) []string {
	anon := "No"
	if r.Anonymous {
		anon = "Yes"
	}
	row := []string{
		r.ID,
		r.SubmittedAt.UTC().Format(time.RFC3339),
		anon,
		orDefault(r.RespondentName, missing),
		orDefault(r.RespondentEmail, missing),
	}
	for _, q := range survey.Questions {
		if a, ok := r.Answer(q.ID); ok {
			row = append(row, a.Value.Display())
		} else {
			row = append(row, "")
		}
	}
	return row
}

func averageCell(avg *float64) string {
	if avg == nil || *avg == 0 {
		return notAvailable
	}
	return strconv.FormatFloat(*avg, 'f', -1, 64)
}

func topOptionCell(oc *analytics.OptionCounts) string {
	if oc == nil {
		return notAvailable
	}
	opt, n, ok := oc.Top()
	if !ok {
		return notAvailable
	}
	return fmt.Sprintf("%s (%d)", opt, n)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func orNA(s string) string { return orDefault(s, notAvailable) }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
