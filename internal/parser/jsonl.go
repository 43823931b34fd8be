package parser

import (
	"encoding/json"
	"io"

	"github.com/zhongyd/addrnorm/internal/addr"
	"github.com/zhongyd/addrnorm/internal/jsonl"
)

// JSONLParser handles line-delimited JSON files of
// {"address": ..., "entities": {...}} objects. Records with pre-classified
// entities skip the tagging phase downstream. Malformed lines are dropped,
// not fatal.
type JSONLParser struct{}

func (p *JSONLParser) Parse(r io.Reader, filename string) ([]addr.Record, error) {
	var records []addr.Record
	err := jsonl.Scan(r,
		func(line int, raw json.RawMessage) error {
			var rec addr.Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil
			}
			if rec.Address == "" {
				return nil
			}
			records = append(records, rec)
			return nil
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return records, nil
}
