package main

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
)

// MissingLog 记录审计中缺失的瓦片, 每行一个 z/x/y
type MissingLog struct {
	file     *os.File
	saveChan chan TileKey
	done     chan struct{}
	once     sync.Once
	count    int64
}

// OpenMissingLog truncates path and starts the writer goroutine.
func OpenMissingLog(path string, buf int) (*MissingLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	m := &MissingLog{
		file:     file,
		saveChan: make(chan TileKey, buf),
		done:     make(chan struct{}),
	}
	go m.start()
	return m, nil
}

func (m *MissingLog) Add(k TileKey) {
	m.saveChan <- k
}

func (m *MissingLog) start() {
	defer close(m.done)
	w := bufio.NewWriter(m.file)
	for k := range m.saveChan {
		w.WriteString(k.String() + "\n")
		m.count++
	}
	w.Flush()
}

// Close flushes pending records and closes the file. Add must not be called
// after Close.
func (m *MissingLog) Close() error {
	var err error
	m.once.Do(func() {
		close(m.saveChan)
		<-m.done
		err = m.file.Close()
	})
	return err
}

// Count is the number of records written; valid after Close.
func (m *MissingLog) Count() int64 {
	return m.count
}
