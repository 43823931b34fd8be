package parser

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zhongyd/addrnorm/internal/addr"
)

// CSVParser handles CSV files. The header row must contain an "address"
// column; an optional "entities" column may carry a JSON object of
// pre-classified components. Without a header match the first column is
// taken as the address.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) ([]addr.Record, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	addrCol, entCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "address", "addr", "地址":
			addrCol = i
		case "entities":
			entCol = i
		}
	}

	dataRows := rows
	if addrCol >= 0 {
		dataRows = rows[1:]
	} else {
		addrCol = 0
	}

	var records []addr.Record
	for _, row := range dataRows {
		if addrCol >= len(row) {
			continue
		}
		address := strings.TrimSpace(row[addrCol])
		if address == "" {
			continue
		}
		rec := addr.Record{Address: address}
		if entCol >= 0 && entCol < len(row) && strings.TrimSpace(row[entCol]) != "" {
			var entities map[string]string
			if err := json.Unmarshal([]byte(row[entCol]), &entities); err == nil {
				rec.Entities = entities
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
