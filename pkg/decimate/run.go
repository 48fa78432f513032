package decimate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/chazu/tessera/internal/logger"
	"github.com/chazu/tessera/pkg/oemm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options controls an out-of-core decimation.
type Options struct {
	// Ratio is the fraction of triangles each group keeps.
	Ratio float64
	// GroupTriangles bounds the size of a leaf group loaded in core.
	GroupTriangles int
	// MinTriangles skips groups smaller than this.
	MinTriangles int
	// Workers is the number of groups processed at once.
	Workers int
	// Leaves restricts the run to these leaf ids when not nil.
	Leaves []int
}

// GroupResult is the outcome for one leaf group.
type GroupResult struct {
	Leaves []int
	Result
}

// Report summarizes a Run.
type Report struct {
	Groups  []GroupResult
	Skipped int
	Before  int
	After   int
}

// Run decimates the leaves of o group by group. Each group is loaded
// into an in-core mesh, simplified and written back into its own leaves;
// groups never share a leaf so they run in parallel. Triangles on the
// border of a group keep their vertices, which keeps neighboring groups
// conforming. Counts are aggregated and the structure saved at the end,
// also when a group fails; the partial report is then returned with the
// error.
func Run(ctx context.Context, o *oemm.OEMM, opts Options) (*Report, error) {
	if opts.Ratio <= 0 || opts.Ratio > 1 {
		return nil, fmt.Errorf("decimate: ratio %g outside (0, 1]", opts.Ratio)
	}
	if opts.GroupTriangles <= 0 {
		return nil, fmt.Errorf("decimate: group size must be positive, got %d", opts.GroupTriangles)
	}
	log := logger.Named("decimate")
	rep := &Report{Before: o.Aggregate()}

	var groups [][]int
	for _, g := range selectLeaves(o.LeafGroups(opts.GroupTriangles), opts.Leaves) {
		count := 0
		for _, id := range g {
			n, _ := o.Leaf(id)
			count += n.TriangleCount
		}
		if count < opts.MinTriangles {
			rep.Skipped++
			continue
		}
		groups = append(groups, g)
	}

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(opts.Workers, 1))
	for _, g := range groups {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := oemm.LoadMesh(o, g)
			if err != nil {
				return err
			}
			target := int(math.Ceil(opts.Ratio * float64(m.TriangleCount())))
			res, err := Mesh(m, target)
			if err != nil {
				return fmt.Errorf("decimate: leaves %v: %w", g, err)
			}
			if err := oemm.StoreMesh(o, m, g); err != nil {
				return err
			}
			log.Debug("group decimated",
				zap.Ints("leaves", g),
				zap.Int("before", res.Before),
				zap.Int("after", res.After))
			mu.Lock()
			rep.Groups = append(rep.Groups, GroupResult{Leaves: g, Result: res})
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		// Groups that finished have replaced their leaf files; commit
		// their counts so the structure matches the data on disk.
		rep.After = o.Aggregate()
		if serr := o.Save(); serr != nil {
			err = errors.Join(err, serr)
		}
		log.Warn("decimation interrupted",
			zap.Int("done", len(rep.Groups)),
			zap.Int("groups", len(groups)),
			zap.Error(err))
		return rep, fmt.Errorf("decimate: %w", err)
	}

	rep.After = o.Aggregate()
	if err := o.Save(); err != nil {
		return nil, err
	}
	log.Info("decimation done",
		zap.Int("groups", len(groups)),
		zap.Int("skipped", rep.Skipped),
		zap.Int("before", rep.Before),
		zap.Int("after", rep.After))
	return rep, nil
}

// selectLeaves intersects every group with the selection.
func selectLeaves(groups [][]int, sel []int) [][]int {
	if sel == nil {
		return groups
	}
	keep := make(map[int]bool, len(sel))
	for _, id := range sel {
		keep[id] = true
	}
	var out [][]int
	for _, g := range groups {
		var s []int
		for _, id := range g {
			if keep[id] {
				s = append(s, id)
			}
		}
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}
