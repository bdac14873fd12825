package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	return hasExt(filename, ".csv", ".tsv")
}

// Load reads a delimited file with a header row. Blank lines are skipped,
// fields are typed dynamically (see typeCell) and short records leave the
// trailing columns absent. Fields beyond the header are ignored.
func (csvLoader) Load(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	delim, err := sniffDelimiter(path, br)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	r := csv.NewReader(br)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &dataset.Dataset{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols := columnSet{}
	for _, h := range header {
		cols.add(h)
	}

	ds := &dataset.Dataset{Columns: cols.names}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(ds.Rows)+1, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make(dataset.Row, len(header))
		for i, h := range header {
			if i >= len(rec) {
				break
			}
			row[h] = typeCell(rec[i])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// sniffDelimiter picks the delimiter for path: tab for .tsv files, otherwise
// whichever of , ; tab or | occurs most often in the header line.
func sniffDelimiter(path string, br *bufio.Reader) (rune, error) {
	if hasExt(path, ".tsv") {
		return '\t', nil
	}
	peek, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return 0, err
	}
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(peek, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best, nil
}

var numericCell = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

const maxExactInt = 1 << 53

// typeCell converts a raw field: empty fields are null, true/false in any of
// the usual casings are booleans, decimal literals that a float64 holds
// exactly enough are numbers and everything else stays a string.
func typeCell(s string) dataset.Value {
	switch s {
	case "":
		return dataset.Null()
	case "true", "TRUE", "True":
		return dataset.Bool(true)
	case "false", "FALSE", "False":
		return dataset.Bool(false)
	}
	if !numericCell.MatchString(s) {
		return dataset.String(s)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f > maxExactInt || f < -maxExactInt {
		return dataset.String(s)
	}
	return dataset.Number(f)
}
