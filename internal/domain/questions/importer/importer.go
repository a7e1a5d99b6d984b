// Package importer проверяет табличные строки и превращает их в черновики вопросов.
package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// Row строка таблицы: текст вопроса, варианты и номер правильного варианта
type Row struct {
	Line    int      `json:"line"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

// Options настройки проверки
type Options struct {
	// OneBased номер правильного варианта считается с единицы
	OneBased bool
}

// DefaultOptions настройки по умолчанию
func DefaultOptions() Options {
	return Options{OneBased: true}
}

// Candidate прошедшая проверку строка
type Candidate struct {
	Line  int
	Draft model.QuestionDraft
}

// Skipped отклоненная строка и причина
type Skipped struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (s Skipped) String() string {
	return fmt.Sprintf("Row %d: %s", s.Line, s.Reason)
}

// Validate отбирает корректные строки. Индекс правильного варианта переводится в отсчет с нуля
// ровно один раз, здесь.
func Validate(rows []Row, opts Options) ([]Candidate, []Skipped) {
	var (
		valid   []Candidate
		skipped []Skipped
	)
	for i, row := range rows {
		line := row.Line
		if line == 0 {
			line = i + 1
		}

		draft, reason := validateRow(row, opts)
		if reason != "" {
			skipped = append(skipped, Skipped{Line: line, Reason: reason})
			continue
		}
		valid = append(valid, Candidate{Line: line, Draft: draft})
	}
	return valid, skipped
}

func validateRow(row Row, opts Options) (model.QuestionDraft, string) {
	text := strings.TrimSpace(row.Text)
	if text == "" {
		return model.QuestionDraft{}, "question text is empty"
	}

	nonEmpty := 0
	for _, o := range row.Options {
		if strings.TrimSpace(o) != "" {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return model.QuestionDraft{}, "at least two non-empty options are required"
	}

	// Номер правильного варианта указывает на столбец файла, пустые ячейки еще на месте
	col, reason := parseCorrect(row.Correct, len(row.Options), opts)
	if reason != "" {
		return model.QuestionDraft{}, reason
	}
	if strings.TrimSpace(row.Options[col]) == "" {
		return model.QuestionDraft{}, fmt.Sprintf("correct option %s points to an empty cell", strings.TrimSpace(row.Correct))
	}

	options := make([]model.Option, 0, nonEmpty)
	idx := 0
	for i, o := range row.Options {
		if o = strings.TrimSpace(o); o == "" {
			continue
		}
		if i == col {
			idx = len(options)
		}
		options = append(options, model.Option{Text: o})
	}

	return model.QuestionDraft{Text: text, Options: options, CorrectOptionIndex: idx}, ""
}

// parseCorrect принимает номер (с единицы или с нуля) или букву A-Z
func parseCorrect(raw string, n int, opts Options) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "correct option is missing"
	}

	if len(raw) == 1 {
		c := raw[0] | 0x20
		if c >= 'a' && c <= 'z' {
			idx := int(c - 'a')
			if idx >= n {
				return 0, fmt.Sprintf("correct option %q is out of range A..%c", raw, 'A'+n-1)
			}
			return idx, ""
		}
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Sprintf("correct option %q is not a number or letter", raw)
	}

	idx, lo, hi := v, 0, n-1
	if opts.OneBased {
		idx, lo, hi = v-1, 1, n
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Sprintf("correct option %d is out of range %d..%d", v, lo, hi)
	}
	return idx, ""
}
