package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

var conf *Conf

type Conf struct {
	App struct {
		Version string `toml:"version"`
		Title   string `toml:"title"`
	} `toml:"app"`
	Output struct {
		LogDir         string `toml:"logDir"`
		OutputTerminal bool   `toml:"outputTerminal"`
	} `toml:"output"`
	Server struct {
		Addr         string        `toml:"addr"`
		QueryTimeout time.Duration `toml:"queryTimeout"`
	} `toml:"server"`
	Archive struct {
		Root    string `toml:"root"`
		Default string `toml:"default"`
		Driver  string `toml:"driver"`
	} `toml:"archive"`
	Exists struct {
		Strict bool `toml:"strict"`
	} `toml:"exists"`
	Summary struct {
		Header bool `toml:"header"`
	} `toml:"summary"`
	Lookup struct {
		OverzoomAbove int `toml:"overzoomAbove"`
	} `toml:"lookup"`
	Audit struct {
		Workers     int    `toml:"workers"`
		BufSize     int    `toml:"bufSize"`
		MissingFile string `toml:"missingFile"`
		Min         int    `toml:"min"`
		Max         int    `toml:"max"`
	} `toml:"audit"`
}

// InitConf 初始化配置
func InitConf(cfgFile string) {
	c, err := LoadConf(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	conf = c
}

// LoadConf reads cfgFile into a Conf. A missing file only warns; defaults apply.
func LoadConf(cfgFile string) (*Conf, error) {
	v := viper.New()
	// 设置默认值
	v.SetDefault("app.version", "v0.1.0")
	v.SetDefault("app.title", "MapCloud TileCheck")
	v.SetDefault("output.outputTerminal", true)
	v.SetDefault("server.addr", ":9458")
	v.SetDefault("server.queryTimeout", 5*time.Second)
	v.SetDefault("archive.driver", DriverSQLite3)
	v.SetDefault("lookup.overzoomAbove", 14)
	v.SetDefault("audit.workers", 4)
	v.SetDefault("audit.bufSize", 64)
	v.SetDefault("audit.missingFile", "missing.log")
	v.SetDefault("audit.min", ZoomMin)
	v.SetDefault("audit.max", 14)

	v.SetConfigType("toml")
	v.AutomaticEnv() // read in environment variables that match
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "config file(%s) not exist, using defaults\n", cfgFile)
		} else {
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file(%s) error, details: %w", cfgFile, err)
			}
		}
	}

	var c Conf
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config file(%s) error, details: %w", cfgFile, err)
	}
	return &c, nil
}
