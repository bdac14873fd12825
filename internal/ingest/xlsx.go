package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return hasExt(filename, ".xlsx", ".xlsm")
}

// Load reads the first sheet of a workbook. The first row supplies column
// names (blank header cells become __EMPTY, __EMPTY_1, ...), blank cells are
// omitted from their row and rows with no values are skipped.
func (xlsxLoader) Load(path string) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &dataset.Dataset{}, nil
	}
	sheet := sheets[0]
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var header []string
	cols := columnSet{}
	ds := &dataset.Dataset{}
	rowIdx := 0
	for rows.Next() {
		rowIdx++
		vals, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowIdx, err)
		}
		if header == nil {
			if len(vals) == 0 {
				continue
			}
			header = headerNames(vals)
			for _, h := range header {
				cols.add(h)
			}
			continue
		}
		row := dataset.Row{}
		for i, raw := range vals {
			if i >= len(header) || raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, rowIdx)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", cell, err)
			}
			row[header[i]] = typeXLSXCell(typ, raw)
		}
		if len(row) > 0 {
			ds.Rows = append(ds.Rows, row)
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	ds.Columns = cols.names
	return ds, nil
}

func headerNames(vals []string) []string {
	out := make([]string, len(vals))
	empty := 0
	for i, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			v = "__EMPTY"
			if empty > 0 {
				v += "_" + strconv.Itoa(empty)
			}
			empty++
		}
		out[i] = v
	}
	return out
}

func typeXLSXCell(typ excelize.CellType, raw string) dataset.Value {
	switch typ {
	case excelize.CellTypeBool:
		return dataset.Bool(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return dataset.String(raw)
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return dataset.Number(f)
	}
	return dataset.String(raw)
}
