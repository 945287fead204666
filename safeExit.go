package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var SafeExitInst *SafeExit

func InitSafeExit() {
	SafeExitInst = NewSafeExit()
	go SafeExitInst.ListenSignal()
}

// SafeExit runs registered cleanup funcs once, newest first, on signal or
// explicit Shutdown.
type SafeExit struct {
	funcs []func()
	mu    sync.Mutex
	once  sync.Once
}

func NewSafeExit() *SafeExit {
	return &SafeExit{}
}

func (s *SafeExit) Register(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.funcs = append(s.funcs, f)
}

// Shutdown runs the cleanup funcs. Later calls are no-ops.
func (s *SafeExit) Shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		funcs := s.funcs
		s.funcs = nil
		s.mu.Unlock()

		for i := len(funcs) - 1; i >= 0; i-- {
			funcs[i]()
		}
	})
}

func (s *SafeExit) ListenSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigs
	fmt.Fprintf(os.Stderr, "收到系统信号 %s, 正在停止任务, 请稍后\n", sig)
	s.Shutdown()
	os.Exit(0)
}
