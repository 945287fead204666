package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
)

func main() {
	// 初始化控制台
	InitFlag()
	// 开始安全退出任务
	InitSafeExit()
	// 初始化配置
	InitConf(configPath)
	// 初始化日志
	InitLog()

	code := 0
	if err := run(); err != nil {
		log.Error(err)
		code = 1
	}
	SafeExitInst.Shutdown()
	os.Exit(code)
}

func run() error {
	svc := NewService(conf, log)
	ctx := context.Background()
	switch {
	case auditPath != "":
		min, max := conf.Audit.Min, conf.Audit.Max
		if auditMin >= 0 {
			min = auditMin
		}
		if auditMax >= 0 {
			max = auditMax
		}
		return InitTask(dbRef, auditPath, min, max)
	case summaryFlag:
		return svc.GetZoomSummary(ctx, dbRef, os.Stdout, TextBreak)
	case existsRequested():
		k, err := parseTileKey(strconv.Itoa(zoomArg), strconv.Itoa(columnArg), strconv.Itoa(rowArg))
		if err != nil {
			return err
		}
		res, err := svc.TileExists(ctx, dbRef, k)
		resp := existsResponse{Success: "false"}
		if res == Found {
			resp.Success = "true"
		}
		json.NewEncoder(os.Stdout).Encode(resp)
		return err
	}
	return serve(svc)
}

func serve(svc *Service) error {
	srv := &http.Server{
		Addr:    conf.Server.Addr,
		Handler: NewHandler(svc, conf.Exists.Strict).Router(),
	}
	SafeExitInst.Register(func() {
		srv.Shutdown(context.Background())
	})
	log.Infof("%s %s listening on %s", conf.App.Title, conf.App.Version, conf.Server.Addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
