package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"
	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// InitTask 执行覆盖度审计
func InitTask(ref, geojsonPath string, min, max int) error {
	start := time.Now()

	collection, err := loadCollection(geojsonPath)
	if err != nil {
		return err
	}
	path, err := (&ArchiveMap{Root: conf.Archive.Root, Default: conf.Archive.Default}).Resolve(ref)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 注册安全退出
	SafeExitInst.Register(cancel)

	archive, err := OpenArchive(ctx, conf.Archive.Driver, path)
	if err != nil {
		return err
	}
	defer archive.Close()

	missing, err := OpenMissingLog(conf.Audit.MissingFile, conf.Audit.Workers)
	if err != nil {
		return err
	}

	task := NewTask(archive, collection, min, max, conf.Audit.Workers, conf.Audit.BufSize, missing, log)

	reports, runErr := task.Run(ctx)
	if err := missing.Close(); err != nil {
		log.Errorf("close missing log %s error ~ %s", conf.Audit.MissingFile, err)
	}
	for _, r := range reports {
		log.Infof("zoom: %d, expected: %d, present: %d, missing: %d, failed: %d", r.Zoom, r.Expected, r.Present, r.Missing, r.Failed)
	}
	log.Infof("%d missing tiles written to %s, %.3fs finished...", missing.Count(), conf.Audit.MissingFile, time.Since(start).Seconds())
	return runErr
}

// Layer 单个级别的审计范围
type Layer struct {
	Zoom       int
	Count      int64
	Collection orb.Collection
}

// LayerReport 单个级别的审计结果
type LayerReport struct {
	Zoom     int
	Expected int64
	Present  int64
	Missing  int64
	Failed   int64
}

// Task checks that an archive holds every tile covering a set of geometries.
type Task struct {
	ID          string
	Layers      []Layer
	Total       int64
	Quiet       bool
	archive     *Archive
	missing     *MissingLog
	log         *logrus.Logger
	workerCount int
	bufSize     int
	tileWG      sync.WaitGroup
	workers     chan struct{}
}

// NewTask 创建审计任务
func NewTask(archive *Archive, c orb.Collection, min, max, workers, bufSize int, missing *MissingLog, l *logrus.Logger) *Task {
	if workers < 1 {
		workers = 1
	}
	id, _ := shortid.Generate()
	task := Task{
		ID:          id,
		archive:     archive,
		missing:     missing,
		log:         l,
		workerCount: workers,
		bufSize:     bufSize,
	}
	for z := min; z <= max; z++ {
		layer := Layer{
			Zoom:       z,
			Count:      tilecover.CollectionCount(c, maptile.Zoom(z)),
			Collection: c,
		}
		l.Debugf("zoom: %d, tiles: %d", z, layer.Count)
		task.Total += layer.Count
		task.Layers = append(task.Layers, layer)
	}
	task.workers = make(chan struct{}, task.workerCount)
	return &task
}

// Run audits every layer in order. It stops early when ctx is canceled and
// returns the reports gathered so far.
func (task *Task) Run(ctx context.Context) ([]LayerReport, error) {
	task.log.Infof("Task %s: %s, %d layers, %d tiles", task.ID, task.archive.Ref, len(task.Layers), task.Total)
	var reports []LayerReport
	for _, layer := range task.Layers {
		r := task.checkLayer(ctx, layer)
		reports = append(reports, r)
		if err := ctx.Err(); err != nil {
			task.log.Infof("Task %s got canceled.", task.ID)
			return reports, err
		}
	}
	return reports, nil
}

func (task *Task) checkLayer(ctx context.Context, layer Layer) LayerReport {
	report := LayerReport{Zoom: layer.Zoom, Expected: layer.Count}
	bar := pb.New64(layer.Count).Prefix(fmt.Sprintf("Zoom %d : ", layer.Zoom))
	bar.NotPrint = task.Quiet
	bar.SetRefreshRate(time.Second)
	bar.Start()

	var tilelist = make(chan maptile.Tile, task.bufSize)
	go tilecover.CollectionChannel(layer.Collection, maptile.Zoom(layer.Zoom), tilelist)

loop:
	for tile := range tilelist {
		select {
		case task.workers <- struct{}{}:
			bar.Increment()
			task.tileWG.Add(1)
			go task.tileChecker(ctx, KeyFromMaptile(tile), &report)
		case <-ctx.Done():
			break loop
		}
	}
	// 放掉剩余瓦片, 避免生成协程阻塞
	go func() {
		for range tilelist {
		}
	}()
	//等待该层结束
	task.tileWG.Wait()
	bar.Finish()
	return report
}

func (task *Task) tileChecker(ctx context.Context, k TileKey, report *LayerReport) {
	defer func() {
		task.tileWG.Done()
		<-task.workers
	}()

	ok, err := task.archive.TileExists(ctx, k)
	switch {
	case err != nil:
		atomic.AddInt64(&report.Failed, 1)
		task.log.Debugf("check tile %s error ~ %s", k, err)
	case ok:
		atomic.AddInt64(&report.Present, 1)
	default:
		atomic.AddInt64(&report.Missing, 1)
		task.missing.Add(k)
	}
}
