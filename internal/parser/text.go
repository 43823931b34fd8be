package parser

import (
	"bufio"
	"io"

	"github.com/zhongyd/addrnorm/internal/addr"
)

// TextParser handles plain text files: one address per line.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]addr.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return recordsFromLines(lines), nil
}
