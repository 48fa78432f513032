package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/tessera/internal/logger"
	"github.com/chazu/tessera/pkg/job"
	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/script"
	"github.com/chazu/tessera/pkg/tessellate"
	"go.uber.org/zap"
)

var errInvalidJob = errors.New("job has validation errors")

func runMesh(args []string) error {
	fs := flag.NewFlagSet("mesh", flag.ContinueOnError)
	out := fs.String("o", "", "Write meshes as JSON to this file instead of stdout")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("mesh: want one script file, got %d", fs.NArg())
	}
	log := logger.Named("mesh")

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	ev := script.NewEvaluator(cfg.Mesher.ScriptTimeout)
	ev.Defaults = job.Params{
		Length:                cfg.Mesher.EdgeLength,
		Deflection:            cfg.Mesher.Deflection,
		RefinePasses:          cfg.Mesher.RefinePasses,
		MaxBoundaryIterations: cfg.Mesher.MaxBoundaryIterations,
	}
	j, evalErrs, err := ev.Evaluate(string(src))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(os.Stderr, "%s:%s\n", fs.Arg(0), e)
		}
		return fmt.Errorf("%d script errors", len(evalErrs))
	}

	findings := job.Validate(j)
	for _, f := range findings {
		log.Warn("validation", zap.String("finding", f.Error()))
	}
	if job.HasErrors(findings) {
		return errInvalidJob
	}

	res, err := tessellate.Tessellate(j)
	if err != nil {
		return err
	}
	for _, f := range res.Failed {
		fmt.Fprintf(os.Stderr, "face %s skipped: %v\n", f.Face, f.Err)
	}
	for _, s := range res.Stats {
		log.Info("face meshed",
			zap.String("face", s.Face),
			zap.Int("inserted", s.Inserted),
			zap.Int("rejected", s.Rejected),
			zap.Int("flips", s.Flips))
	}

	if *out == "" {
		return encodeMeshes(os.Stdout, res.Meshes)
	}
	return writeMeshes(*out, res.Meshes)
}

func encodeMeshes(w io.Writer, meshes []*kernel.Mesh) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meshes)
}

// writeMeshes stores meshes as JSON at path. A failed close is reported
// since it can drop the tail of the output.
func writeMeshes(path string, meshes []*kernel.Mesh) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return encodeMeshes(f, meshes)
}
