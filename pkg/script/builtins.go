package script

import (
	"fmt"
	"strings"

	"github.com/chazu/tessera/pkg/job"
	zygo "github.com/glycerine/zygomys/zygo"
)

// sexpUV carries a parameter point between builtins.
type sexpUV struct {
	p job.UV
}

func (s *sexpUV) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(uv %g %g)", s.p.U, s.p.V)
}
func (s *sexpUV) Type() *zygo.RegisteredType { return nil }

// sexpLoop carries a closed polygon.
type sexpLoop struct {
	loop job.Loop
}

func (s *sexpLoop) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(outline %d points)", len(s.loop))
}
func (s *sexpLoop) Type() *zygo.RegisteredType { return nil }

// sexpFace refers to a face already added to the job.
type sexpFace struct {
	name string
}

func (s *sexpFace) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(face %q)", s.name)
}
func (s *sexpFace) Type() *zygo.RegisteredType { return nil }

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments. A
// trailing keyword with no value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	pa := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			pa.positional = append(pa.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			pa.kw[name] = args[i+1]
			i++
		} else {
			pa.kw[name] = zygo.SexpNull
		}
	}
	return pa
}

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts both :name and "name".
func toKeywordString(s zygo.Sexp) (string, error) {
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string: %w", err)
	}
	return strings.TrimPrefix(str, kwPrefix), nil
}

func toSurface(s zygo.Sexp) (job.SurfaceKind, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return "", err
	}
	switch k := job.SurfaceKind(name); k {
	case job.SurfacePlane, job.SurfaceCylinder, job.SurfaceSphere:
		return k, nil
	}
	return "", fmt.Errorf("unknown surface %q, expected plane, cylinder or sphere", name)
}

func toUV(s zygo.Sexp) (job.UV, error) {
	if p, ok := s.(*sexpUV); ok {
		return p.p, nil
	}
	return job.UV{}, fmt.Errorf("expected uv, got %T (%s)", s, s.SexpString(nil))
}

func toLoop(s zygo.Sexp) (job.Loop, error) {
	if l, ok := s.(*sexpLoop); ok {
		return l.loop, nil
	}
	return nil, fmt.Errorf("expected outline, got %T (%s)", s, s.SexpString(nil))
}

// toLoops accepts a single outline or a list of them.
func toLoops(s zygo.Sexp) ([]job.Loop, error) {
	if l, ok := s.(*sexpLoop); ok {
		return []job.Loop{l.loop}, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]job.Loop, 0, len(items))
	for i, it := range items {
		l, err := toLoop(it)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func toUVs(s zygo.Sexp) ([]job.UV, error) {
	if l, ok := s.(*sexpLoop); ok {
		return l.loop, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]job.UV, 0, len(items))
	for i, it := range items {
		p, err := toUV(it)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func floats(fn string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires exactly %d arguments, got %d", fn, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// registerBuiltins installs the job builtins. They write into j as they
// run, so a face is part of the job whether or not it is passed to job.
func registerBuiltins(env *zygo.Zlisp, j *job.Job) {
	// (uv 1 2)
	env.AddFunction("uv", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats("uv", args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpUV{p: job.UV{U: f[0], V: f[1]}}, nil
	})

	// (outline (uv 0 0) (uv 1 0) (uv 0 1))
	env.AddFunction("outline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		l := make(job.Loop, 0, len(args))
		for i, a := range args {
			p, err := toUV(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("outline: point %d: %w", i+1, err)
			}
			l = append(l, p)
		}
		return &sexpLoop{loop: l}, nil
	})

	// (rect umin vmin umax vmax)
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats("rect", args, 4)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpLoop{loop: job.Rect(f[0], f[1], f[2], f[3])}, nil
	})

	// (polygon cu cv radius sides)
	env.AddFunction("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("polygon requires exactly 4 arguments, got %d", len(args))
		}
		f, err := floats("polygon", args[:3], 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		n, err := toInt(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polygon: sides: %w", err)
		}
		if n < 3 {
			return zygo.SexpNull, fmt.Errorf("polygon: sides: need at least 3, got %d", n)
		}
		return &sexpLoop{loop: job.Polygon(f[0], f[1], f[2], n)}, nil
	})

	// (mesher :length 0.5 :deflection 0.01 :refine-passes 4
	//         :max-boundary-iterations 1000)
	env.AddFunction("mesher", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p := j.Params
		for kw, v := range pa.kw {
			var err error
			switch kw {
			case "length":
				p.Length, err = toFloat64(v)
			case "deflection":
				p.Deflection, err = toFloat64(v)
			case "refine-passes":
				p.RefinePasses, err = toInt(v)
			case "max-boundary-iterations":
				p.MaxBoundaryIterations, err = toInt(v)
			default:
				err = fmt.Errorf("unknown option")
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mesher: %s: %w", kw, err)
			}
		}
		j.Params = p
		return zygo.SexpNull, nil
	})

	// (face "name" :surface :cylinder :radius 2 :outer (rect ...)
	//       :holes (list ...) :points (list (uv ...)))
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("face requires a name argument")
		}
		faceName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: name: %w", err)
		}
		if j.Face(faceName) != nil {
			return zygo.SexpNull, fmt.Errorf("face: duplicate face %q", faceName)
		}
		f := job.Face{Name: faceName, Surface: job.SurfacePlane}
		if v, ok := pa.kw["surface"]; ok {
			if f.Surface, err = toSurface(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("face: surface: %w", err)
			}
		}
		if v, ok := pa.kw["radius"]; ok {
			if f.Radius, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("face: radius: %w", err)
			}
		}
		v, ok := pa.kw["outer"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("face %q: missing :outer", faceName)
		}
		if f.Outer, err = toLoop(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("face: outer: %w", err)
		}
		if v, ok := pa.kw["holes"]; ok {
			if f.Holes, err = toLoops(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("face: holes: %w", err)
			}
		}
		if v, ok := pa.kw["points"]; ok {
			if f.Points, err = toUVs(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("face: points: %w", err)
			}
		}
		j.AddFace(f)
		return &sexpFace{name: faceName}, nil
	})

	// (job "name" (face ...) ...)
	env.AddFunction("job", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("job requires a name argument")
		}
		jobName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("job: name: %w", err)
		}
		for i, a := range args[1:] {
			switch a.(type) {
			case *sexpFace:
			case *zygo.SexpSentinel:
			default:
				return zygo.SexpNull, fmt.Errorf("job: child %d: expected face or mesher, got %T (%s)",
					i+1, a, a.SexpString(nil))
			}
		}
		j.Name = jobName
		return zygo.SexpNull, nil
	})
}
