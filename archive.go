package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/shaxbee/go-spatialite"
	_ "modernc.org/sqlite"
)

// Drivers an archive can be opened with.
const (
	DriverSQLite3    = "sqlite3"    // mattn/go-sqlite3
	DriverSQLite     = "sqlite"     // modernc.org/sqlite
	DriverSpatialite = "spatialite" // shaxbee/go-spatialite
)

const (
	summarySQL = `SELECT zoom_level, min(tile_column), max(tile_column), min(tile_row), max(tile_row), count(zoom_level) FROM tiles GROUP BY zoom_level ORDER BY zoom_level`
	existsSQL  = `SELECT 1 FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ? LIMIT 1`
	metaSQL    = `SELECT name, value FROM metadata`
)

// StorageOpenError means the archive is missing or unreadable.
type StorageOpenError struct {
	Ref string
	Err error
}

func (e *StorageOpenError) Error() string {
	return fmt.Sprintf("open archive %s: %v", e.Ref, e.Err)
}

func (e *StorageOpenError) Unwrap() error { return e.Err }

// QueryPrepareError carries the query text that failed to prepare.
type QueryPrepareError struct {
	Query string
	Err   error
}

func (e *QueryPrepareError) Error() string {
	return fmt.Sprintf("prepare %q: %v", e.Query, e.Err)
}

func (e *QueryPrepareError) Unwrap() error { return e.Err }

// QueryExecuteError is a failure while running or reading a prepared query.
type QueryExecuteError struct {
	Err error
}

func (e *QueryExecuteError) Error() string {
	return fmt.Sprintf("execute: %v", e.Err)
}

func (e *QueryExecuteError) Unwrap() error { return e.Err }

// Archive is a read-only handle on one mbtiles file.
type Archive struct {
	Ref string
	db  *sql.DB
}

// OpenArchive opens path read-only with driver and verifies the connection.
func OpenArchive(ctx context.Context, driver, path string) (*Archive, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &StorageOpenError{Ref: path, Err: err}
	}
	if fi.IsDir() {
		return nil, &StorageOpenError{Ref: path, Err: errors.New("is a directory")}
	}
	if driver == "" {
		driver = DriverSQLite3
	}
	db, err := sql.Open(driver, readOnlyDSN(path))
	if err != nil {
		return nil, &StorageOpenError{Ref: path, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &StorageOpenError{Ref: path, Err: err}
	}
	return &Archive{Ref: path, db: db}, nil
}

func readOnlyDSN(path string) string {
	u := url.URL{Path: path}
	return "file:" + u.EscapedPath() + "?mode=ro"
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// ZoomSummary aggregates the tiles table per zoom level, ascending by zoom.
func (a *Archive) ZoomSummary(ctx context.Context) ([]ZoomSummary, error) {
	stmt, err := a.db.PrepareContext(ctx, summarySQL)
	if err != nil {
		return nil, &QueryPrepareError{Query: summarySQL, Err: err}
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, &QueryExecuteError{Err: err}
	}
	defer rows.Close()

	var out []ZoomSummary
	for rows.Next() {
		var s ZoomSummary
		if err := rows.Scan(&s.Zoom, &s.XMin, &s.XMax, &s.YMin, &s.YMax, &s.Count); err != nil {
			return nil, &QueryExecuteError{Err: err}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryExecuteError{Err: err}
	}
	return out, nil
}

// TileExists looks up one tile in TMS coordinates.
func (a *Archive) TileExists(ctx context.Context, k TileKey) (bool, error) {
	stmt, err := a.db.PrepareContext(ctx, existsSQL)
	if err != nil {
		return false, &QueryPrepareError{Query: existsSQL, Err: err}
	}
	defer stmt.Close()

	var one int
	err = stmt.QueryRowContext(ctx, k.Zoom, k.Column, k.Row).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, &QueryExecuteError{Err: err}
	}
	return true, nil
}

// Metadata reads the name/value metadata table.
func (a *Archive) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := a.db.QueryContext(ctx, metaSQL)
	if err != nil {
		return nil, &QueryExecuteError{Err: err}
	}
	defer rows.Close()

	md := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, &QueryExecuteError{Err: err}
		}
		md[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryExecuteError{Err: err}
	}
	return md, nil
}

// Bounds parses the metadata "bounds" entry (w,s,e,n). ok is false when the
// entry is absent or malformed.
func (a *Archive) Bounds(ctx context.Context) (orb.Bound, bool, error) {
	md, err := a.Metadata(ctx)
	if err != nil {
		return orb.Bound{}, false, err
	}
	b, ok := parseBounds(md["bounds"])
	return b, ok, nil
}

func parseBounds(s string) (orb.Bound, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, false
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, false
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, true
}
