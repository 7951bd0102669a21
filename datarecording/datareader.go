package datarecording

import (
	"context"
	"database/sql"
	"os"

	"github.com/pkg/errors"
)

// Reader reads back observation tables written by an ObservationRecorder.
type Reader struct {
	*sql.DB
}

// NewReader opens path + ".sqlite3" for reading.
func NewReader(path string) (*Reader, error) {
	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}

	db, err := sql.Open("sqlite3", "file:"+filename+"?mode=ro")
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}

	return &Reader{DB: db}, nil
}

// ListTables returns the names of the tables in the database.
func (r *Reader) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "listing tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "listing tables")
		}

		tables = append(tables, name)
	}

	return tables, errors.Wrap(rows.Err(), "listing tables")
}

// ReadObservations returns the rows of an observation table in cycle order.
// limit <= 0 reads all rows.
func (r *Reader) ReadObservations(
	ctx context.Context,
	table string,
	limit int,
) ([]ObservationEntry, error) {
	query := "SELECT Register, Cycle, Reset, UpValid, UpData, DownReady, " +
		"InReady, OutValid, OutData, InputFire, OutputFire, Truncated " +
		"FROM " + table + " ORDER BY Cycle"

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", table)
	}
	defer rows.Close()

	var entries []ObservationEntry
	for rows.Next() {
		var e ObservationEntry

		err := rows.Scan(
			&e.Register, &e.Cycle, &e.Reset, &e.UpValid, &e.UpData,
			&e.DownReady, &e.InReady, &e.OutValid, &e.OutData,
			&e.InputFire, &e.OutputFire, &e.Truncated,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", table)
		}

		entries = append(entries, e)
	}

	return entries, errors.Wrapf(rows.Err(), "reading %s", table)
}
