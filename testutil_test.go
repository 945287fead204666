package main

import (
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// createArchive writes an mbtiles file named name under dir holding tiles
// and, when md is non-nil, a metadata table.
func createArchive(t *testing.T, dir, name string, tiles []TileKey, md map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	db, err := sql.Open(DriverSQLite3, path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`,
	}
	if md != nil {
		stmts = append(stmts, `CREATE TABLE metadata (name TEXT, value TEXT)`)
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	for _, k := range tiles {
		if _, err := db.Exec(`INSERT INTO tiles VALUES (?, ?, ?, ?)`, k.Zoom, k.Column, k.Row, []byte{0x89, 0x50}); err != nil {
			t.Fatalf("insert %s: %v", k, err)
		}
	}
	for name, value := range md {
		if _, err := db.Exec(`INSERT INTO metadata VALUES (?, ?)`, name, value); err != nil {
			t.Fatalf("insert metadata %s: %v", name, err)
		}
	}
	return path
}

// zoom3Tiles is zoom 3, columns 1..3, rows 5..6.
func zoom3Tiles() []TileKey {
	var tiles []TileKey
	for x := 1; x <= 3; x++ {
		for y := 5; y <= 6; y++ {
			tiles = append(tiles, TileKey{Zoom: 3, Column: x, Row: y})
		}
	}
	return tiles
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(root string) *Service {
	return &Service{
		Archives:      &ArchiveMap{Root: root},
		Driver:        DriverSQLite3,
		OverzoomAbove: 14,
		Log:           quietLogger(),
	}
}
