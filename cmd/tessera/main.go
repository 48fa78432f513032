// Command tessera meshes parametric faces described by job scripts and
// builds, decimates and queries out-of-core octrees of triangle soups.
//
// Usage:
//
//	tessera mesh [flags] job.zy
//	tessera oemm build [flags] -dir DIR (-soup FILE | -shape NAME [-size S])
//	tessera oemm decimate [flags] -dir DIR [-leaves 0,3,4]
//	tessera oemm stats -dir DIR
//	tessera oemm locate -dir DIR -point X,Y,Z
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/tessera/internal/config"
	"github.com/chazu/tessera/internal/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  tessera mesh [flags] job.zy
  tessera oemm build [flags] -dir DIR (-soup FILE | -shape NAME [-size S])
  tessera oemm decimate [flags] -dir DIR [-leaves 0,3,4]
  tessera oemm stats -dir DIR
  tessera oemm locate -dir DIR -point X,Y,Z`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "mesh":
		err = runMesh(os.Args[2:])
	case "oemm":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		switch os.Args[2] {
		case "build":
			err = runBuild(os.Args[3:])
		case "decimate":
			err = runDecimate(os.Args[3:])
		case "stats":
			err = runStats(os.Args[3:])
		case "locate":
			err = runLocate(os.Args[3:])
		default:
			usage()
			os.Exit(2)
		}
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tessera:", err)
		os.Exit(1)
	}
}

// setup parses the shared flags plus the command's own, then loads the
// config and starts logging.
func setup(fs *flag.FlagSet, args []string) (*config.Config, error) {
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Split(s, ",")
	if len(fields) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out[i] = x
	}
	return out, nil
}
