package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/chazu/tessera/internal/config"
	"github.com/chazu/tessera/internal/logger"
	"github.com/chazu/tessera/pkg/decimate"
	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/kernel/sdfx"
	"github.com/chazu/tessera/pkg/locator"
	"github.com/chazu/tessera/pkg/oemm"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
)

func buildOptions(cfg *config.Config, dir string) oemm.Options {
	return oemm.Options{
		Dir:           dir,
		MaxDepth:      cfg.OEMM.MaxDepth,
		LeafThreshold: cfg.OEMM.LeafThreshold,
		BufferSize:    cfg.OEMM.BufferKB << 10,
	}
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("oemm build", flag.ContinueOnError)
	dir := fs.String("dir", "", "Output directory")
	soup := fs.String("soup", "", "Triangle soup file")
	shape := fs.String("shape", "", "Mesh a named solid instead of reading a soup: "+strings.Join(kernel.ShapeNames(), ", "))
	size := fs.Float64("size", 1, "Overall size of -shape")
	cells := fs.Int("cells", 200, "Marching cubes resolution for -shape")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("oemm build: -dir is required")
	}

	var src oemm.Source
	switch {
	case *soup != "" && *shape != "":
		return errors.New("oemm build: -soup and -shape are exclusive")
	case *soup != "":
		src = oemm.FileSource(*soup)
	case *shape != "":
		k := sdfx.NewWithResolution(*cells)
		solid, err := kernel.Shape(k, *shape, *size)
		if err != nil {
			return err
		}
		tris, err := k.ToSoup(solid)
		if err != nil {
			return err
		}
		src = oemm.SliceSource(tris)
	default:
		return errors.New("oemm build: need -soup or -shape")
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return err
	}
	o, err := oemm.Build(src, buildOptions(cfg, *dir))
	if err != nil {
		return err
	}
	fmt.Printf("%d triangles in %d leaves, depth %d\n", o.TriangleCount(), o.LeafCount(), o.Depth())
	return nil
}

func runDecimate(args []string) error {
	fs := flag.NewFlagSet("oemm decimate", flag.ContinueOnError)
	dir := fs.String("dir", "", "OEMM directory")
	leaves := fs.String("leaves", "", "Comma-separated leaf ids to decimate (default all)")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	sel, err := parseInts(*leaves)
	if err != nil {
		return err
	}
	o, err := oemm.ReadStructure(*dir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rep, err := decimate.Run(ctx, o, decimate.Options{
		Ratio:          cfg.Decimate.Ratio,
		GroupTriangles: cfg.Decimate.GroupTriangles,
		MinTriangles:   cfg.Decimate.MinTriangles,
		Workers:        cfg.Decimate.Workers,
		Leaves:         sel,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%d groups, %d skipped, %d -> %d triangles\n", len(rep.Groups), rep.Skipped, rep.Before, rep.After)
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("oemm stats", flag.ContinueOnError)
	dir := fs.String("dir", "", "OEMM directory")
	if _, err := setup(fs, args); err != nil {
		return err
	}
	o, err := oemm.ReadStructure(*dir)
	if err != nil {
		return err
	}

	b := o.Bounds
	fmt.Printf("bounds    %v %v\n", b.Min, b.Max)
	fmt.Printf("depth     %d (max %d)\n", o.Depth(), o.MaxDepth)
	fmt.Printf("nodes     %d\n", len(o.Nodes))
	fmt.Printf("leaves    %d\n", o.LeafCount())
	fmt.Printf("triangles %d\n", o.TriangleCount())

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "LEAF\tDEPTH\tTRIANGLES\tVERTICES\tFILE")
	for id := range o.Leaves {
		n, _ := o.Leaf(id)
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\n", id, n.Depth, n.TriangleCount, n.VertexCount, n.File)
	}
	return tw.Flush()
}

func runLocate(args []string) error {
	fs := flag.NewFlagSet("oemm locate", flag.ContinueOnError)
	dir := fs.String("dir", "", "OEMM directory")
	point := fs.String("point", "", "Query point X,Y,Z")
	if _, err := setup(fs, args); err != nil {
		return err
	}
	xyz, err := parseFloats(*point, 3)
	if err != nil {
		return err
	}
	p := v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	o, err := oemm.ReadStructure(*dir)
	if err != nil {
		return err
	}

	var tris []kernel.Triangle
	var owner []int
	for id := range o.Leaves {
		lt, err := oemm.ReadLeaf(o, id)
		if err != nil {
			return err
		}
		tris = append(tris, lt...)
		for range lt {
			owner = append(owner, id)
		}
	}
	logger.Named("locate").Debug("indexed", zap.Int("triangles", len(tris)))

	i, d := locator.NewKDTree(tris).Closest(p)
	if i < 0 {
		return errors.New("oemm locate: octree is empty")
	}
	c := locator.ClosestPoint(tris[i], p)
	fmt.Printf("leaf %d triangle %d distance %g at (%g, %g, %g)\n", owner[i], i, d, c.X, c.Y, c.Z)
	return nil
}
