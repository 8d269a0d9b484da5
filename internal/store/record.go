package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

// Record is one line of the transaction log.
type Record struct {
	Plate           string        `json:"plate"`
	DurationMinutes int           `json:"duration_minutes"`
	Fee             parking.Money `json:"fee"`
	ExitTime        string        `json:"exit_time"`
}

func NewRecord(tx parking.Transaction) Record {
	return Record{
		Plate:           tx.Plate,
		DurationMinutes: tx.DurationMinutes,
		Fee:             tx.Fee,
		ExitTime:        tx.ExitTime.Local().Format(parking.ExitTimeLayout),
	}
}

// Transaction converts the record back. The spot index is not persisted.
func (r Record) Transaction() (parking.Transaction, error) {
	exit, err := time.ParseInLocation(parking.ExitTimeLayout, r.ExitTime, time.Local)
	if err != nil {
		return parking.Transaction{}, fmt.Errorf("parse exit_time %q: %w", r.ExitTime, err)
	}
	return parking.Transaction{
		SpotIndex:       -1,
		Plate:           r.Plate,
		DurationMinutes: r.DurationMinutes,
		Fee:             r.Fee,
		ExitTime:        exit,
	}, nil
}

// MarshalLine encodes the record followed by a newline.
func (r Record) MarshalLine() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ReadRecords parses a newline-delimited log. Blank lines are skipped.
// Malformed lines are skipped too and reported, with their line numbers, in
// the returned error alongside every record that did parse.
func ReadRecords(r io.Reader) ([]Record, error) {
	var (
		records []Record
		errs    []error
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return records, errors.Join(errs...)
}
