// Package export renders quizzes as downloadable files.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/quizethic/quizethic-ai/internal/quiz"
)

const (
	QuestionsSheet = "Questions"
	AnswerKeySheet = "Answer Key"

	// ContentType is the MIME type of the workbook written by WriteXLSX.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	questionHeader = []any{"#", "Subject", "Question", "Option A", "Option B", "Option C", "Option D"}
	answerHeader   = []any{"#", "Answer", "Correct Option", "Explanation"}
)

// WriteXLSX writes q as a workbook with a questions sheet and an answer key sheet.
func WriteXLSX(w io.Writer, q *quiz.Quiz) error {
	if q == nil {
		return fmt.Errorf("export: quiz is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", QuestionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(AnswerKeySheet); err != nil {
		return fmt.Errorf("create answer sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRows(f, QuestionsSheet, questionHeader, bold, questionRows(q)); err != nil {
		return err
	}
	if err := writeRows(f, AnswerKeySheet, answerHeader, bold, answerRows(q)); err != nil {
		return err
	}

	widths := map[string]map[string]float64{
		QuestionsSheet: {"A": 5, "B": 22, "C": 60, "D": 28, "E": 28, "F": 28, "G": 28},
		AnswerKeySheet: {"A": 5, "B": 8, "C": 32, "D": 70},
	}
	for sheet, cols := range widths {
		for col, width := range cols {
			if err := f.SetColWidth(sheet, col, col, width); err != nil {
				return fmt.Errorf("set width %s!%s: %w", sheet, col, err)
			}
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   q.Title,
		Subject: q.Topic,
		Creator: "Quizethic AI",
	}); err != nil {
		return fmt.Errorf("set properties: %w", err)
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename returns a download name for q.
func Filename(q *quiz.Quiz) string {
	return "quiz-" + q.ID + ".xlsx"
}

func writeRows(f *excelize.File, sheet string, header []any, headerStyle int, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func questionRows(q *quiz.Quiz) [][]any {
	rows := make([][]any, 0, len(q.Questions))
	for i, question := range q.Questions {
		row := []any{i + 1, question.Subject, question.Question}
		for _, opt := range question.Options {
			row = append(row, opt)
		}
		rows = append(rows, row)
	}
	return rows
}

func answerRows(q *quiz.Quiz) [][]any {
	rows := make([][]any, 0, len(q.Questions))
	for i, question := range q.Questions {
		var text string
		if question.CorrectAnswer >= 0 && question.CorrectAnswer < len(question.Options) {
			text = question.Options[question.CorrectAnswer]
		}
		rows = append(rows, []any{i + 1, optionLetter(question.CorrectAnswer), text, question.Explanation})
	}
	return rows
}

func optionLetter(i int) string {
	if i < 0 || i > 25 {
		return strconv.Itoa(i)
	}
	return string(rune('A' + i))
}
