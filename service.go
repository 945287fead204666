package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/sirupsen/logrus"
)

// Line-break markers for summary output.
const (
	HTMLBreak = "<br>"
	TextBreak = "\n"
)

// Service answers summary and existence queries. It keeps no state between
// calls: every call opens its own archive handle and closes it before return.
type Service struct {
	Archives      *ArchiveMap
	Driver        string
	Timeout       time.Duration
	Header        bool
	OverzoomAbove int
	Log           *logrus.Logger
}

// NewService 根据配置创建查询服务
func NewService(c *Conf, l *logrus.Logger) *Service {
	return &Service{
		Archives:      &ArchiveMap{Root: c.Archive.Root, Default: c.Archive.Default},
		Driver:        c.Archive.Driver,
		Timeout:       c.Server.QueryTimeout,
		Header:        c.Summary.Header,
		OverzoomAbove: c.Lookup.OverzoomAbove,
		Log:           l,
	}
}

type reqIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reqIDKey{}, id)
}

func (s *Service) entry(ctx context.Context) *logrus.Entry {
	e := logrus.NewEntry(s.Log)
	if id, ok := ctx.Value(reqIDKey{}).(string); ok {
		e = e.WithField("req", id)
	}
	return e
}

func (s *Service) open(ctx context.Context, ref string) (*Archive, error) {
	path, err := s.Archives.Resolve(ref)
	if err != nil {
		return nil, err
	}
	a, err := OpenArchive(ctx, s.Driver, path)
	if err != nil {
		return nil, s.callerError(ref, err)
	}
	return a, nil
}

// callerError names the archive by the caller's reference so responses never
// carry the resolved filesystem path.
func (s *Service) callerError(ref string, err error) error {
	var oe *StorageOpenError
	if !errors.As(err, &oe) {
		return err
	}
	if ref == "" {
		ref = s.Archives.Default
	}
	cause := oe.Err
	var pe *fs.PathError
	if errors.As(cause, &pe) {
		cause = pe.Err
	}
	return &StorageOpenError{Ref: ref, Err: cause}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// GetZoomSummary writes one "<zoom> <x_min> <x_max> <y_min> <y_max> <count>"
// line per zoom level to w, each terminated by br. Failures are written to w
// as a diagnostic line and also returned.
func (s *Service) GetZoomSummary(ctx context.Context, ref string, w io.Writer, br string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sums, err := s.zoomSummary(ctx, ref)
	if err != nil {
		s.writeDiagnostic(ctx, w, ref, br, err)
		return err
	}
	if s.Header {
		fmt.Fprintf(w, "Zoom Levels Found:%d%s", len(sums), br)
	}
	for _, z := range sums {
		if _, err := io.WriteString(w, z.String()+br); err != nil {
			return err
		}
	}
	s.entry(ctx).Debugf("summary %s, %d zoom levels", ref, len(sums))
	return nil
}

func (s *Service) zoomSummary(ctx context.Context, ref string) ([]ZoomSummary, error) {
	a, err := s.open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.ZoomSummary(ctx)
}

func (s *Service) writeDiagnostic(ctx context.Context, w io.Writer, ref, br string, err error) {
	var pe *QueryPrepareError
	if errors.As(err, &pe) {
		s.entry(ctx).Errorf("summary %s: %s", ref, err)
		fmt.Fprintf(w, "%s%sdatabase %s did not open%s", pe.Query, br, ref, br)
		return
	}
	s.entry(ctx).Warnf("summary %s: %s", ref, err)
	fmt.Fprintf(w, "Exception : %s%s", err, br)
}

// TileExists reports whether the archive holds a tile at k. Failed is returned
// together with the cause.
func (s *Service) TileExists(ctx context.Context, ref string, k TileKey) (Existence, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a, err := s.open(ctx, ref)
	if err != nil {
		s.entry(ctx).Warnf("exists %s %s: %s", ref, k, err)
		return Failed, err
	}
	defer a.Close()

	return s.exists(ctx, a, k)
}

func (s *Service) exists(ctx context.Context, a *Archive, k TileKey) (Existence, error) {
	ok, err := a.TileExists(ctx, k)
	if err != nil {
		s.entry(ctx).Warnf("exists %s %s: %s", a.Ref, k, err)
		return Failed, err
	}
	s.entry(ctx).Debugf("exists %s %s: %t", a.Ref, k, ok)
	if ok {
		return Found, nil
	}
	return NotFound, nil
}

// LookupByCoordinate checks the tile covering lon/lat at zoom. Above
// OverzoomAbove a missing tile still counts as found when the point lies
// inside the archive's metadata bounds.
func (s *Service) LookupByCoordinate(ctx context.Context, ref string, lat, lon float64, zoom int) (Existence, TileKey, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pt := orb.Point{lon, lat}
	k := KeyFromMaptile(maptile.At(pt, maptile.Zoom(zoom)))

	a, err := s.open(ctx, ref)
	if err != nil {
		s.entry(ctx).Warnf("lookup %s %s: %s", ref, k, err)
		return Failed, k, err
	}
	defer a.Close()

	res, err := s.exists(ctx, a, k)
	if res != NotFound || zoom <= s.OverzoomAbove {
		return res, k, err
	}

	bound, ok, err := a.Bounds(ctx)
	if err != nil {
		// an archive without a metadata table just has no bounds
		s.entry(ctx).Debugf("lookup %s bounds: %s", ref, err)
		return NotFound, k, nil
	}
	if ok && bound.Contains(pt) {
		s.entry(ctx).Debugf("lookup %s %s: overzoom inside %v", ref, k, bound)
		return Found, k, nil
	}
	return NotFound, k, nil
}

// Metadata returns the archive's metadata table.
func (s *Service) Metadata(ctx context.Context, ref string) (map[string]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a, err := s.open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Metadata(ctx)
}
