package config

import "flag"

// Flags holds command-line overrides. Zero values mean "not set".
type Flags struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	EdgeLength float64
	Deflection float64
	MaxDepth   int
	Threshold  int
	Ratio      float64
	Workers    int
}

// RegisterFlags installs the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to this file")
	fs.Float64Var(&f.EdgeLength, "edge-length", 0, "Target edge length")
	fs.Float64Var(&f.Deflection, "deflection", 0, "Maximum geometric deflection")
	fs.IntVar(&f.MaxDepth, "max-depth", 0, "Octree maximum depth")
	fs.IntVar(&f.Threshold, "threshold", 0, "Octree leaf triangle threshold")
	fs.Float64Var(&f.Ratio, "ratio", 0, "Decimation target ratio")
	fs.IntVar(&f.Workers, "workers", 0, "Parallel leaf-group workers")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.EdgeLength > 0 {
		cfg.Mesher.EdgeLength = f.EdgeLength
	}
	if f.Deflection > 0 {
		cfg.Mesher.Deflection = f.Deflection
	}
	if f.MaxDepth > 0 {
		cfg.OEMM.MaxDepth = f.MaxDepth
	}
	if f.Threshold > 0 {
		cfg.OEMM.LeafThreshold = f.Threshold
	}
	if f.Ratio > 0 {
		cfg.Decimate.Ratio = f.Ratio
	}
	if f.Workers > 0 {
		cfg.Decimate.Workers = f.Workers
	}
}
