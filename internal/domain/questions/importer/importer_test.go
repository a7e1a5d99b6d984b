package importer

import (
	"testing"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScenario(t *testing.T) {
	rows := []Row{
		{Line: 2, Text: "2+2?", Options: []string{"3", "4"}, Correct: "2"},
		{Line: 3, Text: "Capital of France?", Options: []string{"Paris", "Rome", "Berlin"}, Correct: "1"},
		{Line: 4, Text: "   ", Options: []string{"a", "b"}, Correct: "1"},
		{Line: 5, Text: "Largest planet?", Options: []string{"Mars", "", "Jupiter"}, Correct: "3"},
	}

	valid, skipped := Validate(rows, DefaultOptions())
	require.Len(t, valid, 3)
	require.Len(t, skipped, 1)
	assert.Equal(t, Skipped{Line: 4, Reason: "question text is empty"}, skipped[0])
	assert.Equal(t, "Row 4: question text is empty", skipped[0].String())

	assert.Equal(t, model.QuestionDraft{
		Text:               "2+2?",
		Options:            []model.Option{{Text: "3"}, {Text: "4"}},
		CorrectOptionIndex: 1,
	}, valid[0].Draft)
	assert.Equal(t, 0, valid[1].Draft.CorrectOptionIndex)

	// Номер считается по столбцам файла, пустой вариант отбрасывается после
	assert.Equal(t, []model.Option{{Text: "Mars"}, {Text: "Jupiter"}}, valid[2].Draft.Options)
	assert.Equal(t, 1, valid[2].Draft.CorrectOptionIndex)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		row    Row
		opts   Options
		reason string
	}{
		{name: "one option", row: Row{Text: "Q", Options: []string{"a", " "}, Correct: "1"}, opts: DefaultOptions(), reason: "at least two non-empty options are required"},
		{name: "missing index", row: Row{Text: "Q", Options: []string{"a", "b"}}, opts: DefaultOptions(), reason: "correct option is missing"},
		{name: "garbage index", row: Row{Text: "Q", Options: []string{"a", "b"}, Correct: "first"}, opts: DefaultOptions(), reason: `correct option "first" is not a number or letter`},
		{name: "zero is out of one-based range", row: Row{Text: "Q", Options: []string{"a", "b"}, Correct: "0"}, opts: DefaultOptions(), reason: "correct option 0 is out of range 1..2"},
		{name: "too large", row: Row{Text: "Q", Options: []string{"a", "b"}, Correct: "3"}, opts: DefaultOptions(), reason: "correct option 3 is out of range 1..2"},
		{name: "zero-based too large", row: Row{Text: "Q", Options: []string{"a", "b"}, Correct: "2"}, opts: Options{}, reason: "correct option 2 is out of range 0..1"},
		{name: "points to empty cell", row: Row{Text: "Q", Options: []string{"a", "", "b"}, Correct: "2"}, opts: DefaultOptions(), reason: "correct option 2 points to an empty cell"},
		{name: "letter too large", row: Row{Text: "Q", Options: []string{"a", "b"}, Correct: "C"}, opts: DefaultOptions(), reason: `correct option "C" is out of range A..B`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid, skipped := Validate([]Row{tc.row}, tc.opts)
			assert.Empty(t, valid)
			require.Len(t, skipped, 1)
			assert.Equal(t, 1, skipped[0].Line)
			assert.Equal(t, tc.reason, skipped[0].Reason)
		})
	}
}

func TestValidateIndexForms(t *testing.T) {
	options := []string{"a", "b", "c"}
	cases := []struct {
		correct string
		opts    Options
		want    int
	}{
		{"3", DefaultOptions(), 2},
		{" 1 ", DefaultOptions(), 0},
		{"0", Options{}, 0},
		{"2", Options{}, 2},
		{"b", DefaultOptions(), 1},
		{"C", Options{}, 2},
	}
	for _, tc := range cases {
		valid, skipped := Validate([]Row{{Text: "Q", Options: options, Correct: tc.correct}}, tc.opts)
		require.Empty(t, skipped, tc.correct)
		assert.Equal(t, tc.want, valid[0].Draft.CorrectOptionIndex, tc.correct)
	}
}

func TestValidateGapInOptions(t *testing.T) {
	rows := []Row{
		{Line: 2, Text: "Capital of France?", Options: []string{"Berlin", "", "Paris", "Rome"}, Correct: "3"},
		{Line: 3, Text: "Capital of Italy?", Options: []string{"Berlin", "", "Paris", "Rome"}, Correct: "4"},
		{Line: 4, Text: "Capital of Spain?", Options: []string{"Madrid", "", "Paris", "Rome"}, Correct: "2"},
		{Line: 5, Text: "Capital of Germany?", Options: []string{"Berlin", "", "Paris"}, Correct: "A"},
	}

	valid, skipped := Validate(rows, DefaultOptions())
	require.Len(t, valid, 3)
	require.Len(t, skipped, 1)
	assert.Equal(t, Skipped{Line: 4, Reason: "correct option 2 points to an empty cell"}, skipped[0])

	want := []model.Option{{Text: "Berlin"}, {Text: "Paris"}, {Text: "Rome"}}
	assert.Equal(t, want, valid[0].Draft.Options)
	assert.Equal(t, "Paris", valid[0].Draft.Options[valid[0].Draft.CorrectOptionIndex].Text)
	assert.Equal(t, "Rome", valid[1].Draft.Options[valid[1].Draft.CorrectOptionIndex].Text)
	assert.Equal(t, 0, valid[2].Draft.CorrectOptionIndex)
}
