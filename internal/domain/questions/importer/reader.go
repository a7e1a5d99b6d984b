package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxRows предел числа строк в одном файле
const DefaultMaxRows = 1000

var headerNames = map[string]bool{
	"question": true,
	"text":     true,
	"вопрос":   true,
}

// ReadCSV читает строки из CSV. Столбцы: вопрос, варианты..., номер правильного варианта.
func ReadCSV(r io.Reader, maxRows int) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return toRows(records, lines, maxRows)
}

// ReadXLSX читает строки с листа книги Excel. Пустое имя листа означает первый лист.
func ReadXLSX(r io.Reader, sheet string, maxRows int) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return toRows(records, nil, maxRows)
}

// toRows раскладывает записи по столбцам. Если первая строка похожа на заголовок,
// ее ширина задает положение столбца с правильным вариантом, иначе он последний непустой.
// lines номера строк файла для записей, nil означает сплошную нумерацию с единицы.
func toRows(records [][]string, lines []int, maxRows int) ([]Row, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	width := 0
	start := 0
	if len(records) > 0 && len(records[0]) > 0 && headerNames[strings.ToLower(strings.TrimSpace(records[0][0]))] {
		width = len(trimTrailing(records[0]))
		start = 1
	}

	var rows []Row
	for i := start; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		if len(rows) == maxRows {
			return nil, fmt.Errorf("file has more than %d rows", maxRows)
		}
		line := i + 1
		if lines != nil {
			line = lines[i]
		}
		rows = append(rows, splitRecord(line, rec, width))
	}
	return rows, nil
}

func splitRecord(line int, rec []string, width int) Row {
	row := Row{Line: line}
	if width >= 2 {
		rec = pad(rec, width)
		row.Text = rec[0]
		row.Options = append([]string(nil), rec[1:width-1]...)
		row.Correct = rec[width-1]
		return row
	}

	rec = trimTrailing(rec)
	switch len(rec) {
	case 0:
	case 1:
		row.Text = rec[0]
	default:
		row.Text = rec[0]
		row.Options = append([]string(nil), rec[1:len(rec)-1]...)
		row.Correct = rec[len(rec)-1]
	}
	return row
}

func trimTrailing(rec []string) []string {
	n := len(rec)
	for n > 0 && strings.TrimSpace(rec[n-1]) == "" {
		n--
	}
	return rec[:n]
}

func pad(rec []string, width int) []string {
	if len(rec) >= width {
		return rec
	}
	out := make([]string, width)
	copy(out, rec)
	return out
}

func blank(rec []string) bool {
	return len(trimTrailing(rec)) == 0
}
