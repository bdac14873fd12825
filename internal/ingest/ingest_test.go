package ingest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/utils"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadFile_CSVDynamicTyping(t *testing.T) {
	p := writeFile(t, "sales.csv", "region,sales,active,note\n"+
		"East,100,true,\n"+
		"\n"+
		"West,2.5e2,FALSE,n/a\n"+
		"North,007,maybe,12345678901234567890\n"+
		"South\n")
	ds, err := LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Name != "sales.csv" {
		t.Fatalf("name = %q", ds.Name)
	}
	if got := len(ds.Rows); got != 4 {
		t.Fatalf("rows = %d, want 4", got)
	}
	want := []string{"region", "sales", "active", "note"}
	for i, c := range want {
		if ds.Columns[i] != c {
			t.Fatalf("columns = %v, want %v", ds.Columns, want)
		}
	}
	r0 := ds.Rows[0]
	if f, ok := r0["sales"].Float(); !ok || f != 100 {
		t.Fatalf("sales not numeric: %#v", r0["sales"])
	}
	if b, ok := r0["active"].Boolean(); !ok || !b {
		t.Fatalf("active not bool: %#v", r0["active"])
	}
	if !r0["note"].IsNull() {
		t.Fatalf("empty field should be null: %#v", r0["note"])
	}
	if f, _ := ds.Rows[1]["sales"].Float(); f != 250 {
		t.Fatalf("exponent not parsed: %v", f)
	}
	r2 := ds.Rows[2]
	if f, _ := r2["sales"].Float(); f != 7 {
		t.Fatalf("leading zeros: %v", f)
	}
	if r2["active"].Kind() != dataset.KindString {
		t.Fatalf("maybe should stay a string")
	}
	if r2["note"].Kind() != dataset.KindString {
		t.Fatalf("unsafe integer should stay a string")
	}
	if ds.Rows[3].Has("sales") {
		t.Fatalf("short record should leave trailing columns absent")
	}
}

func TestLoadFile_SemicolonAndTSV(t *testing.T) {
	ds, err := LoadFile(writeFile(t, "eu.csv", "city;amount\nParis;10\nLyon;5\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Rows[1].Text("city") != "Lyon" || ds.Rows[1].Number("amount") != 5 {
		t.Fatalf("unexpected row: %v", ds.Rows[1])
	}
	ds, err = LoadFile(writeFile(t, "data.tsv", "a\tb\n1\tx\n"))
	if err != nil {
		t.Fatalf("load tsv: %v", err)
	}
	if ds.Rows[0].Text("b") != "x" {
		t.Fatalf("tsv: %v", ds.Rows[0])
	}
}

func TestLoadFile_Empty(t *testing.T) {
	for name, content := range map[string]string{
		"header.csv": "a,b\n",
		"blank.csv":  "",
		"empty.json": "[]",
		"none.json":  "   ",
	} {
		_, err := LoadFile(writeFile(t, name, content))
		if !errors.Is(err, ErrEmptyDataset) {
			t.Fatalf("%s: expected ErrEmptyDataset, got %v", name, err)
		}
	}
}

func TestLoadFile_JSON(t *testing.T) {
	p := writeFile(t, "rows.json", `[{"z":1,"a":"x","nested":{"k":[1,2]}},42,{"a":"y","extra":null}]`)
	ds, err := LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(ds.Rows))
	}
	want := []string{"z", "a", "nested", "extra"}
	if len(ds.Columns) != len(want) {
		t.Fatalf("columns = %v", ds.Columns)
	}
	for i := range want {
		if ds.Columns[i] != want[i] {
			t.Fatalf("columns = %v, want %v", ds.Columns, want)
		}
	}
	if got := ds.Rows[0].Text("nested"); got != `{"k":[1,2]}` {
		t.Fatalf("nested = %q", got)
	}
	if !ds.Rows[1]["extra"].IsNull() {
		t.Fatalf("null lost")
	}

	single, err := LoadFile(writeFile(t, "one.json", `{"a":1}`))
	if err != nil || len(single.Rows) != 1 {
		t.Fatalf("single object: %v %v", single, err)
	}
}

func TestLoadFile_UnknownExtensionFallsBackToJSON(t *testing.T) {
	ds, err := LoadFile(writeFile(t, "export.txt", `[{"a":1}]`))
	if err != nil || ds.Len() != 1 {
		t.Fatalf("fallback: %v %v", ds, err)
	}
	_, err = LoadFile(writeFile(t, "notes.txt", "hello"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	_, err = LoadFile(writeFile(t, "old.xls", "x"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for xls, got %v", err)
	}
}

func TestLoadFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	cells := map[string]any{
		"A1": "region", "C1": "sales", "D1": "active",
		"A2": "East", "B2": "memo", "C2": 100, "D2": true,
		"A3": "West", "D3": false,
		"A5": "North", "C5": 12.5,
	}
	for ref, v := range cells {
		if err := f.SetCellValue(sheet, ref, v); err != nil {
			t.Fatalf("set %s: %v", ref, err)
		}
	}
	p := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	ds, err := LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ds.Rows) != 3 {
		t.Fatalf("rows = %d, want 3 (blank row skipped)", len(ds.Rows))
	}
	r0 := ds.Rows[0]
	if v, ok := r0["sales"].Float(); !ok || v != 100 {
		t.Fatalf("sales = %#v", r0["sales"])
	}
	if b, ok := r0["active"].Boolean(); !ok || !b {
		t.Fatalf("active = %#v", r0["active"])
	}
	if r0.Text("__EMPTY") != "memo" {
		t.Fatalf("blank header not named: %v", ds.Columns)
	}
	if ds.Rows[1].Has("sales") {
		t.Fatalf("blank cell should be omitted")
	}
	if v, _ := ds.Rows[2]["sales"].Float(); v != 12.5 {
		t.Fatalf("float cell = %v", v)
	}
}

func TestSampleJSON(t *testing.T) {
	ds := &dataset.Dataset{
		Columns: []string{"b", "a"},
		Rows: []dataset.Row{
			{"a": dataset.Number(1), "b": dataset.String("x")},
			{"a": dataset.Null(), "z": dataset.Bool(true)},
			{"a": dataset.Number(3)},
		},
	}
	got, err := SampleJSON(ds, 2)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	want := `[{"b":"x","a":1},{"a":null,"z":true}]`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	all, _ := SampleJSON(ds, 0)
	if err := json.Unmarshal([]byte(all), &decoded); err != nil || len(decoded) != 3 {
		t.Fatalf("all rows: %v %v", decoded, err)
	}
}

func TestSampleWithinBudget(t *testing.T) {
	ds := &dataset.Dataset{Columns: []string{"note"}}
	for i := 0; i < 16; i++ {
		ds.Rows = append(ds.Rows, dataset.Row{"note": dataset.String(strings.Repeat("x", 40))})
	}
	full, n, err := SampleWithinBudget(ds, 20, 0)
	if err != nil || n != 16 {
		t.Fatalf("unlimited budget: n=%d err=%v", n, err)
	}
	small, n, err := SampleWithinBudget(ds, 20, utils.CountTokens(full)/3)
	if err != nil {
		t.Fatalf("budget: %v", err)
	}
	if n != 4 || !utils.FitsTokenBudget(small, utils.CountTokens(full)/3) {
		t.Fatalf("expected 4 rows within budget, got %d", n)
	}
	_, n, _ = SampleWithinBudget(ds, 20, 1)
	if n != 1 {
		t.Fatalf("expected at least one row, got %d", n)
	}
}
