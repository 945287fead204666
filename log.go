package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/shiena/ansicolor"
)

var log *logrus.Logger

// InitLog 初始化日志
func InitLog() {
	l, closer, err := NewLogger(conf, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "日志文件打开失败: %s\n", err)
		os.Exit(1)
	}
	if closer != nil {
		SafeExitInst.Register(func() { closer.Close() })
	}
	log = l
}

// NewLogger builds the nested-format logger writing to the dated file under
// output.logDir and/or the terminal.
func NewLogger(c *Conf, levelName string) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()
	l.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	var file *os.File
	logIO := make([]io.Writer, 0, 2)
	if c.Output.LogDir != "" {
		if err := os.MkdirAll(c.Output.LogDir, os.ModePerm); err != nil {
			return nil, nil, err
		}
		filename := filepath.Join(c.Output.LogDir, time.Now().Format("2006-01-02.log"))
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		file = f
		logIO = append(logIO, f)
	}
	if c.Output.OutputTerminal {
		logIO = append(logIO, os.Stdout)
	}
	if len(logIO) == 0 {
		logIO = append(logIO, io.Discard)
	}

	// 融合日志输出
	l.SetOutput(ansicolor.NewAnsiColorWriter(io.MultiWriter(logIO...)))

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetLevel(level)
	}
	if file == nil {
		return l, nil, nil
	}
	return l, file, nil
}
