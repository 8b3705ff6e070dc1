package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/scythe504/andevent-backend/internal"
)

// Column layout: text, option1..option4, correctIndex, seconds, difficulty,
// category and an optional id. Rows without an id get one derived from
// their content, which keeps re-seeding idempotent.
const (
	questionCSVColumns = 9
	idColumn           = 9
)

// ReadQuestionsCSV loads a question bank export. A header row whose first
// cell is "text" is skipped; invalid rows are logged and skipped.
func ReadQuestionsCSV(filePath string, logger *slog.Logger) ([]internal.Question, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open questions file %s: %w", filePath, err)
	}
	defer f.Close()

	return ParseQuestionsCSV(f, logger)
}

func ParseQuestionsCSV(r io.Reader, logger *slog.Logger) ([]internal.Question, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	var questions []internal.Question
	line := 0
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse questions csv: %w", err)
		}
		line++

		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "text") {
			continue
		}

		q, err := questionFromRecord(record)
		if err != nil {
			logger.Warn("[ParseQuestionsCSV] skipping invalid record", "line", line, "error", err)
			continue
		}
		questions = append(questions, q)
	}

	return questions, nil
}

func questionFromRecord(record []string) (internal.Question, error) {
	if len(record) < questionCSVColumns {
		return internal.Question{}, fmt.Errorf("expected %d columns, got %d", questionCSVColumns, len(record))
	}

	correct, err := strconv.Atoi(strings.TrimSpace(record[5]))
	if err != nil {
		return internal.Question{}, fmt.Errorf("invalid correctIndex %q", record[5])
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(record[6]))
	if err != nil {
		return internal.Question{}, fmt.Errorf("invalid seconds %q", record[6])
	}

	q := internal.Question{
		Text:         record[0],
		Options:      append([]string(nil), record[1:5]...),
		CorrectIndex: correct,
		Seconds:      seconds,
		Difficulty:   internal.Difficulty(record[7]),
		Category:     record[8],
	}
	q.Normalize()
	if err := q.Validate(); err != nil {
		return internal.Question{}, err
	}

	if len(record) > idColumn && strings.TrimSpace(record[idColumn]) != "" {
		q.Id = strings.TrimSpace(record[idColumn])
	} else {
		q.Id = ContentId(append([]string{q.Text, strings.ToLower(q.Category)}, q.Options...)...)
	}
	return q, nil
}
