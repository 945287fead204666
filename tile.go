package main

import (
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// ZoomMin 最小级别
const ZoomMin = 0

// ZoomMax 最大级别
const ZoomMax = 30

// ZoomSummary 单个级别的瓦片范围与数量
type ZoomSummary struct {
	Zoom  int
	XMin  int
	XMax  int
	YMin  int
	YMax  int
	Count int64
}

// String renders the record as the six whitespace separated summary values.
func (s ZoomSummary) String() string {
	return fmt.Sprintf("%d %d %d %d %d %d", s.Zoom, s.XMin, s.XMax, s.YMin, s.YMax, s.Count)
}

// Existence is the outcome of a single tile lookup.
type Existence int

const (
	NotFound Existence = iota
	Found
	Failed
)

func (e Existence) String() string {
	switch e {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	default:
		return "failed"
	}
}

// TileKey addresses a tile in archive (TMS) coordinates.
type TileKey struct {
	Zoom   int
	Column int
	Row    int
}

func (k TileKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Zoom, k.Column, k.Row)
}

// flipRow converts between XYZ and TMS rows; the mapping is its own inverse.
func flipRow(zoom, row int) int {
	return (1 << uint(zoom)) - 1 - row
}

// KeyFromMaptile converts an XYZ maptile into archive coordinates.
func KeyFromMaptile(t maptile.Tile) TileKey {
	z := int(t.Z)
	return TileKey{Zoom: z, Column: int(t.X), Row: flipRow(z, int(t.Y))}
}

// Maptile converts archive coordinates back into an XYZ maptile.
func (k TileKey) Maptile() maptile.Tile {
	return maptile.New(uint32(k.Column), uint32(flipRow(k.Zoom, k.Row)), maptile.Zoom(k.Zoom))
}
