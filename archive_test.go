package main

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	spatialite "github.com/shaxbee/go-spatialite"
)

func TestArchiveZoomSummary(t *testing.T) {
	dir := t.TempDir()
	tiles := append(zoom3Tiles(),
		TileKey{Zoom: 1, Column: 0, Row: 1},
		TileKey{Zoom: 1, Column: 1, Row: 1},
		TileKey{Zoom: 1, Column: 1, Row: 1}, // duplicate rows are counted
		TileKey{Zoom: 0, Column: 0, Row: 0},
	)
	path := createArchive(t, dir, "a.mbtiles", tiles, nil)

	a, err := OpenArchive(context.Background(), DriverSQLite3, path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer a.Close()

	got, err := a.ZoomSummary(context.Background())
	if err != nil {
		t.Fatalf("ZoomSummary: %v", err)
	}
	want := []ZoomSummary{
		{Zoom: 0, XMin: 0, XMax: 0, YMin: 0, YMax: 0, Count: 1},
		{Zoom: 1, XMin: 0, XMax: 1, YMin: 1, YMax: 1, Count: 3},
		{Zoom: 3, XMin: 1, XMax: 3, YMin: 5, YMax: 6, Count: 6},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ZoomSummary = %+v, want %+v", got, want)
	}
}

func TestArchiveZoomSummaryEmpty(t *testing.T) {
	path := createArchive(t, t.TempDir(), "empty.mbtiles", nil, nil)
	a, err := OpenArchive(context.Background(), DriverSQLite3, path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer a.Close()

	got, err := a.ZoomSummary(context.Background())
	if err != nil {
		t.Fatalf("ZoomSummary: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ZoomSummary = %+v, want none", got)
	}
}

func TestOpenArchiveMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.mbtiles")
	_, err := OpenArchive(context.Background(), DriverSQLite3, path)
	var oe *StorageOpenError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want StorageOpenError", err)
	}
	if oe.Ref != path {
		t.Errorf("Ref = %q, want %q", oe.Ref, path)
	}
}

func TestOpenArchiveDirectory(t *testing.T) {
	_, err := OpenArchive(context.Background(), DriverSQLite3, t.TempDir())
	var oe *StorageOpenError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want StorageOpenError", err)
	}
}

func TestArchiveWithoutTilesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.mbtiles")
	db, err := sql.Open(DriverSQLite3, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE other (id INTEGER)`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	a, err := OpenArchive(context.Background(), DriverSQLite3, path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer a.Close()

	_, err = a.ZoomSummary(context.Background())
	var pe *QueryPrepareError
	if !errors.As(err, &pe) {
		t.Fatalf("ZoomSummary err = %v, want QueryPrepareError", err)
	}
	if pe.Query != summarySQL {
		t.Errorf("Query = %q, want %q", pe.Query, summarySQL)
	}

	_, err = a.TileExists(context.Background(), TileKey{})
	if !errors.As(err, &pe) {
		t.Fatalf("TileExists err = %v, want QueryPrepareError", err)
	}
}

func TestArchiveTileExists(t *testing.T) {
	path := createArchive(t, t.TempDir(), "a.mbtiles", zoom3Tiles(), nil)
	a, err := OpenArchive(context.Background(), DriverSQLite3, path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer a.Close()

	tests := []struct {
		k    TileKey
		want bool
	}{
		{TileKey{3, 2, 5}, true},
		{TileKey{3, 1, 6}, true},
		{TileKey{3, 9, 9}, false},
		{TileKey{4, 2, 5}, false},
	}
	for _, tt := range tests {
		got, err := a.TileExists(context.Background(), tt.k)
		if err != nil {
			t.Fatalf("TileExists(%s): %v", tt.k, err)
		}
		if got != tt.want {
			t.Errorf("TileExists(%s) = %t, want %t", tt.k, got, tt.want)
		}
	}
}

func TestArchivePureGoDriver(t *testing.T) {
	path := createArchive(t, t.TempDir(), "a.mbtiles", zoom3Tiles(), nil)
	a, err := OpenArchive(context.Background(), DriverSQLite, path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer a.Close()

	ok, err := a.TileExists(context.Background(), TileKey{3, 3, 6})
	if err != nil || !ok {
		t.Fatalf("TileExists = %t, %v; want true", ok, err)
	}
	sums, err := a.ZoomSummary(context.Background())
	if err != nil {
		t.Fatalf("ZoomSummary: %v", err)
	}
	if len(sums) != 1 || sums[0].Count != 6 {
		t.Errorf("ZoomSummary = %+v", sums)
	}
}

func TestArchiveBounds(t *testing.T) {
	md := map[string]string{"bounds": "-123.5,36.8,-121.2,38.1", "name": "detail"}
	path := createArchive(t, t.TempDir(), "a.mbtiles", nil, md)
	a, err := OpenArchive(context.Background(), DriverSQLite3, path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer a.Close()

	got, ok, err := a.Bounds(context.Background())
	if err != nil || !ok {
		t.Fatalf("Bounds = %v, %t, %v", got, ok, err)
	}
	want := orb.Bound{Min: orb.Point{-123.5, 36.8}, Max: orb.Point{-121.2, 38.1}}
	if got != want {
		t.Errorf("Bounds = %v, want %v", got, want)
	}
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"-180,-85,180,85", true},
		{" 1, 2, 3, 4 ", true},
		{"", false},
		{"1,2,3", false},
		{"1,2,x,4", false},
	}
	for _, tt := range tests {
		if _, ok := parseBounds(tt.in); ok != tt.ok {
			t.Errorf("parseBounds(%q) ok = %t, want %t", tt.in, ok, tt.ok)
		}
	}
}

func TestArchiveSpatialiteDriver(t *testing.T) {
	path := createArchive(t, t.TempDir(), "a.mbtiles", zoom3Tiles(), nil)
	a, err := OpenArchive(context.Background(), DriverSpatialite, path)
	if errors.Is(err, spatialite.ErrSpatialiteNotFound) {
		t.Skip("libspatialite not installed")
	}
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer a.Close()

	ok, err := a.TileExists(context.Background(), TileKey{3, 2, 5})
	if err != nil || !ok {
		t.Errorf("TileExists = %t, %v; want true", ok, err)
	}
}
