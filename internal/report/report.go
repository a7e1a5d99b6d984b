package report

import (
	"fmt"
	"io"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/jung-kurt/gofpdf"
)

const fontFamily = "DejaVu"

// Results данные для отчета по попыткам теста
type Results struct {
	Test     model.Test
	Sessions []model.TestSession
}

// Options настройки отчета
type Options struct {
	// FontPath путь к TTF-шрифту с кириллицей. Пустой путь означает встроенный Helvetica без кириллицы.
	FontPath string
	Now      func() time.Time
}

// Generator формирует PDF-отчеты
type Generator struct {
	opts Options
}

// NewGenerator создает новый экземпляр Generator
func NewGenerator(opts Options) *Generator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{opts: opts}
}

// Write пишет PDF-отчет по результатам теста в w
func (g *Generator) Write(w io.Writer, r Results) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(g.opts.Now())

	family, tr := "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	if g.opts.FontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", g.opts.FontPath)
		family, tr = fontFamily, func(s string) string { return s }
	}

	pdf.AddPage()

	// Заголовок
	pdf.SetFont(family, "", 16)
	pdf.MultiCell(0, 10, tr("Test results: "+r.Test.Name), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(family, "", 11)
	info := fmt.Sprintf("Status: %s\nQuestions: %d\nScheduled: %s\nTime limit: %d min\nAttempts: %d\n",
		r.Test.Status, r.Test.QuestionCount, r.Test.DateTime.UTC().Format(time.RFC3339),
		r.Test.TimeLimit, len(r.Sessions))
	pdf.MultiCell(0, 7, tr(info), "", "L", false)
	pdf.Ln(4)

	if len(r.Sessions) == 0 {
		pdf.MultiCell(0, 7, tr("No attempts yet."), "", "L", false)
		return pdf.Output(w)
	}

	widths := []float64{50, 28, 22, 22, 34, 34}
	header := []string{"Student", "Status", "Score", "Correct", "Started", "Finished"}
	for i, h := range header {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	for _, s := range r.Sessions {
		row := []string{
			s.StudentID,
			s.Status,
			score(s.FinalScore),
			fmt.Sprintf("%d/%d", correctAnswers(s), len(s.Answers)),
			s.StartTime.UTC().Format("2006-01-02 15:04"),
			finished(s.EndTime),
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 7, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func finished(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func correctAnswers(s model.TestSession) int {
	n := 0
	for _, a := range s.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}
