package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// overlayColumns are the headers an overlay CSV must carry, in any order.
var overlayColumns = []string{"hs_code", "origin_country"}

var rateColumns = map[string]model.RateField{
	"section_301": model.Section301,
	"section_232": model.Section232,
	"section_201": model.Section201,
	"reciprocal":  model.Reciprocal,
}

// ParseResult is the outcome of parsing one overlay file. Bad rows are
// reported with their line numbers and skipped; parsing keeps going.
type ParseResult struct {
	Records  []model.PolicyTariffRecord
	Warnings []string
}

// parseRate distinguishes "no data" from "verified zero". An empty cell
// means the regime was never checked for this row and must stay nil so
// the resolver falls through; "0" means someone verified the rate is
// zero and must survive as a hit.
func parseRate(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse rate %q", cell)
	}
	if v < 0 {
		return nil, eris.Errorf("negative rate %q", cell)
	}
	return &v, nil
}

// ParseOverlayCSV reads an overlay rate table. Expected headers:
// hs_code, origin_country, the four rate columns, and optionally
// verified_source and verified_date (YYYY-MM-DD).
func ParseOverlayCSV(r io.Reader) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range overlayColumns {
		if _, ok := col[required]; !ok {
			return nil, eris.Errorf("ingest: csv missing required column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := &ParseResult{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		code, err := model.NormalizeHS(cell(row, "hs_code"))
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		rec := model.PolicyTariffRecord{
			HSCode:         code,
			OriginCountry:  strings.ToUpper(cell(row, "origin_country")),
			VerifiedSource: cell(row, "verified_source"),
		}

		if raw := cell(row, "verified_date"); raw != "" {
			d, err := time.Parse("2006-01-02", raw)
			if err != nil {
				out.Warnings = append(out.Warnings, fmt.Sprintf("line %d: bad verified_date %q", line, raw))
			} else {
				rec.VerifiedDate = &d
			}
		}

		bad := false
		for name, field := range rateColumns {
			v, err := parseRate(cell(row, name))
			if err != nil {
				out.Warnings = append(out.Warnings, fmt.Sprintf("line %d: column %s: %v", line, name, err))
				bad = true
				break
			}
			rec.SetRate(field, v)
		}
		if bad {
			continue
		}

		out.Records = append(out.Records, rec)
	}
	return out, nil
}
