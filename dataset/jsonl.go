// Package dataset moves transition tables between files, databases and
// rl.Frame.
//
// The file format is JSON lines: one JSON object per line, keyed by column
// name. Files ending in .gz are compressed transparently.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sw965/qreplay/rl"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ErrMalformedLine = errors.New("dataset: malformed line")

const maxLineSize = 16 * 1024 * 1024

// ReadJSONLines reads one row per non-blank line. Columns are collected in
// the order they are first seen. JSON numbers decode as json.Number holding
// the literal text, strings as string, booleans as bool and null as nil.
func ReadJSONLines(r io.Reader) (rl.Frame, error) {
	frame := rl.Frame{}
	seen := map[string]bool{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return rl.Frame{}, fmt.Errorf("%w: line %d is not valid JSON", ErrMalformedLine, lineNo)
		}
		obj := gjson.ParseBytes(line)
		if !obj.IsObject() {
			return rl.Frame{}, fmt.Errorf("%w: line %d is not a JSON object", ErrMalformedLine, lineNo)
		}

		row := rl.Row{}
		obj.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if !seen[name] {
				seen[name] = true
				frame.Columns = append(frame.Columns, name)
			}
			if value.Type == gjson.Number {
				row[name] = json.Number(value.Raw)
			} else {
				row[name] = value.Value()
			}
			return true
		})
		frame.Rows = append(frame.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return rl.Frame{}, err
	}
	return frame, nil
}

// WriteJSONLines writes every row of f as one JSON object. Keys follow the
// order of f.Columns; cells a row does not hold are omitted.
func WriteJSONLines(w io.Writer, f rl.Frame) error {
	bw := bufio.NewWriter(w)
	for i, row := range f.Rows {
		line := []byte("{}")
		for _, name := range f.Columns {
			v, ok := row[name]
			if !ok {
				continue
			}
			var err error
			line, err = sjson.SetBytes(line, escapePath(name), v)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i, name, err)
			}
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// escapePath makes a column name usable as a single sjson path component.
func escapePath(name string) string {
	if !strings.ContainsAny(name, `.*?|#@\:!=<>%"`) {
		return name
	}
	var sb strings.Builder
	for _, r := range name {
		if strings.ContainsRune(`.*?|#@\:!=<>%"`, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
