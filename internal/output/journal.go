package output

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/gapscan/internal/contracts"
)

// JournalFile is the default trade journal file name
const JournalFile = "journal.csv"

var journalHeader = []string{
	"date", "ticker", "side", "entry_price", "exit_price", "shares",
	"total_cost", "pl_dollar", "pl_percent", "plan", "actual", "notes",
}

// Side of a manual trade
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Trade is one manually logged round trip
type Trade struct {
	Date       string
	Ticker     string
	Side       Side
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Shares     int64
	Plan       string
	Actual     string
	Notes      string
}

// PL is the computed result of a trade
type PL struct {
	TotalCost decimal.Decimal // cents
	Dollars   decimal.Decimal // cents
	Percent   decimal.Decimal // 2 decimals
}

// ComputePL returns cost and P/L; a short profits when the exit is lower
func ComputePL(t Trade) PL {
	shares := decimal.NewFromInt(t.Shares)
	move := t.ExitPrice.Sub(t.EntryPrice)
	if t.Side == SideShort {
		move = move.Neg()
	}

	pl := PL{
		TotalCost: t.EntryPrice.Mul(shares).Round(2),
		Dollars:   move.Mul(shares).Round(2),
		Percent:   decimal.Zero,
	}
	if !t.EntryPrice.IsZero() {
		pl.Percent = move.Div(t.EntryPrice).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return pl
}

// Journal appends trades to journal.csv
type Journal struct {
	file *csvFile
}

// NewJournal creates a journal at path
func NewJournal(path string) *Journal {
	return &Journal{file: newCSVFile(path, journalHeader)}
}

// RecordTrade validates, computes P/L and appends the trade
func (j *Journal) RecordTrade(ctx context.Context, t Trade) (PL, error) {
	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))
	if t.Ticker == "" {
		return PL{}, fmt.Errorf("ticker is required")
	}
	if t.Side != SideLong && t.Side != SideShort {
		return PL{}, fmt.Errorf("side must be long or short, got %q", t.Side)
	}
	if t.Shares <= 0 {
		return PL{}, fmt.Errorf("shares must be > 0")
	}
	if !t.EntryPrice.IsPositive() || !t.ExitPrice.IsPositive() {
		return PL{}, fmt.Errorf("prices must be > 0")
	}

	pl := ComputePL(t)
	row := []string{
		t.Date,
		t.Ticker,
		string(t.Side),
		t.EntryPrice.String(),
		t.ExitPrice.String(),
		fmt.Sprintf("%d", t.Shares),
		pl.TotalCost.StringFixed(2),
		pl.Dollars.StringFixed(2),
		pl.Percent.StringFixed(2),
		t.Plan,
		t.Actual,
		t.Notes,
	}

	if err := j.file.append([][]string{row}); err != nil {
		return PL{}, fmt.Errorf("%w: journal: %w", contracts.ErrPersistence, err)
	}
	return pl, nil
}

// JournalEntry is one journal row read back with its computed P/L
type JournalEntry struct {
	Trade
	PL
}

// ReadJournal parses journal.csv; a missing file is an empty journal.
// Rows with unparseable numbers are skipped.
func ReadJournal(path string) ([]JournalEntry, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	entries := make([]JournalEntry, 0, len(rows))
	for _, r := range rows {
		entry, ok := parseJournalRow(r)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseJournalRow(r map[string]string) (JournalEntry, bool) {
	var e JournalEntry
	var err error

	if e.EntryPrice, err = decimal.NewFromString(r["entry_price"]); err != nil {
		return e, false
	}
	if e.ExitPrice, err = decimal.NewFromString(r["exit_price"]); err != nil {
		return e, false
	}
	if e.TotalCost, err = decimal.NewFromString(r["total_cost"]); err != nil {
		return e, false
	}
	if e.Dollars, err = decimal.NewFromString(r["pl_dollar"]); err != nil {
		return e, false
	}
	if e.Percent, err = decimal.NewFromString(r["pl_percent"]); err != nil {
		return e, false
	}
	if e.Shares, err = strconv.ParseInt(r["shares"], 10, 64); err != nil {
		return e, false
	}

	e.Date = r["date"]
	e.Ticker = r["ticker"]
	e.Side = Side(r["side"])
	e.Plan = r["plan"]
	e.Actual = r["actual"]
	e.Notes = r["notes"]
	return e, true
}
