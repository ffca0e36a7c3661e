package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the EPR history of a run, one row per iteration and one
// column per chain.
func (s *Store) WriteCSV(id string, w io.Writer) error {
	run, err := s.Load(id)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"iteration"}
	for k := 0; k < run.Chains; k++ {
		header = append(header, fmt.Sprintf("epr%d", k))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, vals := range run.EPR {
		row := []string{strconv.Itoa(i)}
		for _, v := range vals {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the full run, including states and EPR history.
func (s *Store) WriteJSON(id string, w io.Writer) error {
	run, err := s.Load(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
