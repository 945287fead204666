package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	hf          bool
	configPath  string
	logLevel    string
	dbRef       string
	summaryFlag bool
	zoomArg     int
	columnArg   int
	rowArg      int
	auditPath   string
	auditMin    int
	auditMax    int
	// names of flags given on the command line
	setFlags = map[string]bool{}
)

func InitFlag() {
	flag.BoolVar(&hf, "h", false, "this help")
	flag.StringVar(&configPath, "c", "./conf/conf.toml", "set config `file`")
	flag.StringVar(&logLevel, "l", "info", "set log level (default: info)")
	flag.StringVar(&dbRef, "db", "", "tile archive `reference` (mbtiles file)")
	flag.BoolVar(&summaryFlag, "summary", false, "print per-zoom summary of the archive")
	flag.IntVar(&zoomArg, "z", 0, "zoom level for an existence check")
	flag.IntVar(&columnArg, "x", 0, "tile column for an existence check")
	flag.IntVar(&rowArg, "y", 0, "tile row (TMS) for an existence check")
	flag.StringVar(&auditPath, "audit", "", "audit archive coverage against a geojson `file`")
	flag.IntVar(&auditMin, "min", -1, "audit min zoom (default: audit.min)")
	flag.IntVar(&auditMax, "max", -1, "audit max zoom (default: audit.max)")
	flag.Usage = usage
	flag.Parse()
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	if hf {
		flag.Usage()
		os.Exit(0)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `tilecheck version: tilecheck/v0.1.0
Usage: tilecheck [-h] [-c filename] [-l logLevel]
       tilecheck -db archive -summary
       tilecheck -db archive -z zoom -x column -y row
       tilecheck -db archive -audit features.geojson [-min z] [-max z]
`)
	flag.PrintDefaults()
}

// existsRequested reports whether all of -z, -x and -y were given.
func existsRequested() bool {
	return setFlags["z"] && setFlags["x"] && setFlags["y"]
}
