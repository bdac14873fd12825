package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/utils"
)

type jsonLoader struct{}

func (jsonLoader) CanLoad(filename string) bool {
	return hasExt(filename, ".json")
}

// Load reads an array of objects, or a single object treated as one row.
// Array elements that are not objects are skipped. Nested values are kept as
// their JSON text.
func (jsonLoader) Load(path string) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file content is empty", ErrEmptyDataset)
	}
	ds := &dataset.Dataset{}
	cols := columnSet{}
	switch data[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON: %v", ErrUnsupported, err)
		}
		for _, e := range elems {
			row, ok, err := decodeRow(e, &cols)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid JSON: %v", ErrUnsupported, err)
			}
			if ok {
				ds.Rows = append(ds.Rows, row)
			}
		}
	case '{':
		row, _, err := decodeRow(data, &cols)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid JSON: %v", ErrUnsupported, err)
		}
		ds.Rows = append(ds.Rows, row)
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrUnsupported)
	}
	ds.Columns = cols.names
	return ds, nil
}

// decodeRow decodes one JSON object keeping its key order in cols. ok is
// false when raw is valid JSON but not an object.
func decodeRow(raw json.RawMessage, cols *columnSet) (dataset.Row, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, false, err
	}
	if d, isDelim := tok.(json.Delim); !isDelim || d != '{' {
		return nil, false, nil
	}
	row := dataset.Row{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, false, err
		}
		key, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, false, err
		}
		cols.add(key)
		row[key] = dataset.FromAny(v)
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	return row, true, nil
}

// DefaultSampleRows is the number of rows sent to schema synthesis.
const DefaultSampleRows = 20

// SampleJSON encodes the first n rows (all rows when n <= 0) as a JSON array
// of objects whose keys follow the dataset's column order.
func SampleJSON(ds *dataset.Dataset, n int) (string, error) {
	rows := ds.Rows
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		first := true
		for _, c := range orderedKeys(ds.Columns, r) {
			k, err := json.Marshal(c)
			if err != nil {
				return "", err
			}
			v, err := json.Marshal(r[c].Any())
			if err != nil {
				return "", fmt.Errorf("encode %s: %w", c, err)
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.String(), nil
}

// SampleWithinBudget is SampleJSON with the row count halved until the encoded
// sample fits maxTokens estimated tokens. At least one row is always kept.
func SampleWithinBudget(ds *dataset.Dataset, n, maxTokens int) (string, int, error) {
	if n <= 0 || n > len(ds.Rows) {
		n = len(ds.Rows)
	}
	for {
		out, err := SampleJSON(ds, n)
		if err != nil {
			return "", 0, err
		}
		if n <= 1 || utils.FitsTokenBudget(out, maxTokens) {
			return out, n, nil
		}
		n /= 2
	}
}

// orderedKeys lists the keys of r in column order, followed by any keys the
// column list does not mention.
func orderedKeys(columns []string, r dataset.Row) []string {
	out := make([]string, 0, len(r))
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
		if r.Has(c) {
			out = append(out, c)
		}
	}
	var extra []string
	for k := range r {
		if _, ok := known[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
