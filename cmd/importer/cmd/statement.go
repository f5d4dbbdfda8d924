package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go-ledger-import/internal/models"
)

// readStatementRows reads a CSV statement into raw rows. This is a thin
// adapter: the first record is the header, every following record becomes
// a RawRow keyed by the lowercased header names. All interpretation of
// the values happens in the normalizer.
func readStatementRows(path string) ([]models.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("statement file is empty: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read statement header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var rows []models.RawRow
	rowNumber := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read statement row %d: %w", rowNumber+1, err)
		}

		rowNumber++
		fields := make(map[string]string, len(columns))
		for i, value := range record {
			if i < len(columns) {
				fields[columns[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, models.RawRow{RowNumber: rowNumber, Fields: fields})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("statement file has no data rows: %s", path)
	}
	return rows, nil
}
