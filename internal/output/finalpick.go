package output

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/gapscan/internal/contracts"
)

// PickFile is the default pick file name
const PickFile = "today_pick.csv"

var pickHeader = []string{
	"date", "time", "ticker", "gap_pct", "rvol", "atr_stretch",
	"premarket_high", "open_price", "score", "final_pick", "rationale", "catalyst",
	"mode", "run_id",
}

// PickCSV appends final pick rows to today_pick.csv
type PickCSV struct {
	file *csvFile
}

// NewPickCSV creates a writer for path
func NewPickCSV(path string) *PickCSV {
	return &PickCSV{file: newCSVFile(path, pickHeader)}
}

var _ contracts.PickWriter = (*PickCSV)(nil)

// Path returns the file location
func (p *PickCSV) Path() string {
	return p.file.Path()
}

// WritePick appends one row
func (p *PickCSV) WritePick(ctx context.Context, rec contracts.FinalPickRecord) error {
	final := "FALSE"
	if rec.IsFinal {
		final = "TRUE"
	}

	row := []string{
		rec.Date,
		rec.Time,
		rec.Ticker,
		money(rec.GapPct),
		money(rec.RVOL),
		money(rec.ATRStretch),
		money(rec.PremarketHigh),
		money(rec.OpenPrice),
		money(rec.Score),
		final,
		rec.Rationale,
		rec.Catalyst,
		string(rec.Mode),
		rec.RunID,
	}

	if err := p.file.append([][]string{row}); err != nil {
		return fmt.Errorf("%w: pick: %w", contracts.ErrPersistence, err)
	}
	return nil
}

// ReadPicks parses every row of a pick file
func ReadPicks(path string) ([]contracts.FinalPickRecord, error) {
	raw, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.FinalPickRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, contracts.FinalPickRecord{
			Date:          r["date"],
			Time:          r["time"],
			Ticker:        r["ticker"],
			GapPct:        parseFloat(r["gap_pct"]),
			RVOL:          parseFloat(r["rvol"]),
			ATRStretch:    parseFloat(r["atr_stretch"]),
			PremarketHigh: parseFloat(r["premarket_high"]),
			OpenPrice:     parseFloat(r["open_price"]),
			Score:         parseFloat(r["score"]),
			IsFinal:       strings.EqualFold(r["final_pick"], "TRUE"),
			Rationale:     r["rationale"],
			Catalyst:      r["catalyst"],
			Mode:          contracts.SelectionState(r["mode"]),
			RunID:         r["run_id"],
		})
	}
	return out, nil
}

// FinalFor returns the final pick recorded for date, nil if none
func FinalFor(path, date string) (*contracts.FinalPickRecord, error) {
	picks, err := ReadPicks(path)
	if err != nil {
		return nil, err
	}
	for i := range picks {
		if picks[i].Date == date && picks[i].IsFinal {
			return &picks[i], nil
		}
	}
	return nil, nil
}

// PicksFor returns the rows of one date
func PicksFor(path, date string) ([]contracts.FinalPickRecord, error) {
	picks, err := ReadPicks(path)
	if err != nil {
		return nil, err
	}
	out := picks[:0]
	for _, p := range picks {
		if p.Date == date {
			out = append(out, p)
		}
	}
	return out, nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}
