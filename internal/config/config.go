// Package config handles tessera configuration loading and management.
package config

import "time"

// Config holds all tool settings.
type Config struct {
	Mesher   MesherConfig   `yaml:"mesher"`
	OEMM     OEMMConfig     `yaml:"oemm"`
	Decimate DecimateConfig `yaml:"decimate"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MesherConfig holds 2D meshing parameters.
type MesherConfig struct {
	EdgeLength            float64       `yaml:"edge_length"`
	Deflection            float64       `yaml:"deflection"`
	MaxBoundaryIterations int           `yaml:"max_boundary_iterations"`
	RefinePasses          int           `yaml:"refine_passes"`
	ScriptTimeout         time.Duration `yaml:"script_timeout"`
}

// OEMMConfig holds out-of-core octree build settings.
type OEMMConfig struct {
	MaxDepth      int `yaml:"max_depth"`
	LeafThreshold int `yaml:"leaf_threshold"`
	BufferKB      int `yaml:"buffer_kb"`
}

// DecimateConfig holds leaf-group decimation settings.
type DecimateConfig struct {
	Ratio          float64 `yaml:"ratio"`
	GroupTriangles int     `yaml:"group_triangles"`
	MinTriangles   int     `yaml:"min_triangles"`
	Workers        int     `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Mesher: MesherConfig{
			EdgeLength:            1.0,
			Deflection:            0,
			MaxBoundaryIterations: 10000,
			RefinePasses:          8,
			ScriptTimeout:         5 * time.Second,
		},
		OEMM: OEMMConfig{
			MaxDepth:      10,
			LeafThreshold: 50000,
			BufferKB:      64,
		},
		Decimate: DecimateConfig{
			Ratio:          0.5,
			GroupTriangles: 200000,
			MinTriangles:   100,
			Workers:        4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
