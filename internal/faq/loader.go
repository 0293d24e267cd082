package faq

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/hrline/taishokubot/internal/models"
	"github.com/hrline/taishokubot/internal/validate"
)

const columnsPerEntry = 5

// Load reads the FAQ table from a 5-column CSV file: keys (comma-joined
// inside the cell), question EN, answer EN, question JP, answer JP. Row
// order is preserved because lookup is first-match. Short rows are skipped
// with a warning, they never fail the load.
func Load(path string) ([]models.FAQEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer file.Close()

	entries, err := parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	return entries, nil
}

func parse(r io.Reader) ([]models.FAQEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reader.ReadAll: %w", err)
	}

	entries := make([]models.FAQEntry, 0, len(records))

	for index, record := range records {
		if len(record) < columnsPerEntry {
			log.Warnf("faq.parse: row %d has %d columns, want %d: skipped", index, len(record), columnsPerEntry)
			continue
		}

		entries = append(entries, models.FAQEntry{
			Keys:       parseKeys(record[0]),
			QuestionEN: strings.TrimSpace(record[1]),
			AnswerEN:   strings.TrimSpace(record[2]),
			QuestionJP: strings.TrimSpace(record[3]),
			AnswerJP:   strings.TrimSpace(record[4]),
		})
	}

	return entries, nil
}

func parseKeys(cell string) []string {
	parts := strings.Split(cell, ",")

	keys := make([]string, 0, len(parts))

	for _, part := range parts {
		if key := validate.Fold(part); key != "" {
			keys = append(keys, key)
		}
	}

	return keys
}
