// Package bom reads bills of materials from the formats customers
// actually send: CSV exports, Excel workbooks, and JSON payloads.
package bom

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// Result is a parsed BOM plus per-row data-quality warnings. A bad row is
// reported with its row number and skipped; reading keeps going so one
// typo does not reject a 400-line BOM.
type Result struct {
	Components []model.Component
	Warnings   []string
}

// ReadFile dispatches on the file extension.
func ReadFile(path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSVFile(path)
	case ".xlsx":
		return ReadXLSX(path)
	case ".json":
		return readJSONFile(path)
	default:
		return nil, eris.Errorf("bom: unsupported file type %q", filepath.Ext(path))
	}
}

// columnIndex maps normalized header names to positions. Accepts the
// snake_case headers our templates use and the spaced variants customers
// type by hand.
func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		col[key] = i
	}
	return col
}

var headerAliases = map[string]string{
	"origin":        "origin_country",
	"country":       "origin_country",
	"value_pct":     "value_share",
	"value_percent": "value_share",
	"hs":            "hs_code",
	"hts_code":      "hs_code",
	"part":          "description",
	"part_name":     "description",
}

func lookup(col map[string]int, row []string, name string) string {
	i, ok := col[name]
	if !ok {
		for alias, canonical := range headerAliases {
			if canonical == name {
				if j, ok := col[alias]; ok {
					i, ok = j, true
					break
				}
			}
		}
		if !ok {
			return ""
		}
	}
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseRow validates one row into a Component. Row numbers in errors are
// 1-based file positions, matching what the customer sees in Excel.
func parseRow(col map[string]int, row []string, rowNum int) (model.Component, error) {
	c := model.Component{
		OriginCountry: strings.ToUpper(lookup(col, row, "origin_country")),
		HSCode:        lookup(col, row, "hs_code"),
		Description:   lookup(col, row, "description"),
	}
	if c.OriginCountry == "" {
		return c, eris.Errorf("row %d: missing origin country", rowNum)
	}

	raw := lookup(col, row, "value_share")
	if raw == "" {
		return c, eris.Errorf("row %d: missing value share", rowNum)
	}
	raw = strings.TrimSuffix(raw, "%")
	share, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return c, eris.Errorf("row %d: bad value share %q", rowNum, raw)
	}
	if share < 0 || share > 100 {
		return c, eris.Errorf("row %d: value share %.2f out of range", rowNum, share)
	}
	c.ValueShare = share
	return c, nil
}

// ReadCSV parses a BOM from CSV. Required columns: origin_country (or
// origin/country), value_share (percentage), hs_code. description is
// optional.
func ReadCSV(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "bom: read csv header")
	}
	col := columnIndex(header)

	out := &Result{}
	for rowNum := 2; ; rowNum++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		c, err := parseRow(col, row, rowNum)
		if err != nil {
			out.Warnings = append(out.Warnings, err.Error())
			continue
		}
		out.Components = append(out.Components, c)
	}
	return out, nil
}

func readCSVFile(path string) (*Result, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(f)
}

// ReadXLSX parses a BOM from the first sheet of an Excel workbook. The
// first row is the header.
func ReadXLSX(path string) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "bom: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("bom: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("bom: sheet is empty")
	}

	header := rowToStrings(sheet.Rows[0])
	col := columnIndex(header)

	out := &Result{}
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}
		c, err := parseRow(col, cells, i+2)
		if err != nil {
			out.Warnings = append(out.Warnings, err.Error())
			continue
		}
		out.Components = append(out.Components, c)
	}
	return out, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadJSON parses a BOM from a JSON array of components.
func ReadJSON(r io.Reader) (*Result, error) {
	var components []model.Component
	if err := json.NewDecoder(r).Decode(&components); err != nil {
		return nil, eris.Wrap(err, "bom: decode json")
	}

	out := &Result{}
	for i, c := range components {
		c.OriginCountry = strings.ToUpper(strings.TrimSpace(c.OriginCountry))
		if c.OriginCountry == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("component %d: missing origin country", i+1))
			continue
		}
		if c.ValueShare < 0 || c.ValueShare > 100 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("component %d: value share %.2f out of range", i+1, c.ValueShare))
			continue
		}
		out.Components = append(out.Components, c)
	}
	return out, nil
}

func readJSONFile(path string) (*Result, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ReadJSON(f)
}
