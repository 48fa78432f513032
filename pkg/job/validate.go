package job

import (
	"fmt"
	"math"
)

// Severity indicates whether a finding blocks meshing or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // blocks meshing
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Face     string // face name, empty for job-level findings
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	if e.Face == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] face %s: %s", e.Severity, e.Face, e.Message)
}

// Validate checks a job and returns its findings. It never mutates the
// job. Faces with errors can still be skipped by the driver; warnings
// never prevent meshing.
func Validate(j *Job) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateParams(j.Params)...)
	if len(j.Faces) == 0 {
		errs = append(errs, ValidationError{Message: "job has no faces", Severity: SeverityWarning})
	}
	seen := make(map[string]bool, len(j.Faces))
	for i := range j.Faces {
		f := &j.Faces[i]
		if f.Name == "" {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("face %d has no name", i), Severity: SeverityError})
		} else if seen[f.Name] {
			errs = append(errs, ValidationError{Face: f.Name, Message: "duplicate face name", Severity: SeverityError})
		}
		seen[f.Name] = true
		errs = append(errs, validateFace(f)...)
	}
	return errs
}

// HasErrors reports whether any finding is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateParams(p Params) []ValidationError {
	var errs []ValidationError
	if p.Length < 0 || math.IsNaN(p.Length) {
		errs = append(errs, ValidationError{Message: fmt.Sprintf("edge length %g is negative", p.Length), Severity: SeverityError})
	}
	if p.Deflection < 0 {
		errs = append(errs, ValidationError{Message: fmt.Sprintf("deflection %g is negative", p.Deflection), Severity: SeverityError})
	}
	if p.MaxBoundaryIterations <= 0 {
		errs = append(errs, ValidationError{Message: "max boundary iterations must be positive", Severity: SeverityError})
	}
	if p.Length == 0 && p.RefinePasses > 0 {
		errs = append(errs, ValidationError{Message: "refinement needs an edge length", Severity: SeverityWarning})
	}
	return errs
}

func validateFace(f *Face) []ValidationError {
	var errs []ValidationError
	add := func(sev Severity, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Face: f.Name, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	switch f.Surface {
	case SurfacePlane, "":
	case SurfaceCylinder, SurfaceSphere:
		if !(f.Radius > 0) {
			add(SeverityError, "%s surface needs a positive radius", f.Surface)
		}
	default:
		add(SeverityError, "unknown surface %q", f.Surface)
	}

	if len(f.Outer) < 3 {
		add(SeverityError, "outer loop has %d points, need at least 3", len(f.Outer))
		return errs
	}
	if f.Outer.Area() == 0 {
		add(SeverityError, "outer loop has zero area")
	}
	errs = append(errs, validateLoop(f, "outer loop", f.Outer)...)
	for i, h := range f.Holes {
		name := fmt.Sprintf("hole %d", i)
		if len(h) < 3 {
			add(SeverityError, "%s has %d points, need at least 3", name, len(h))
			continue
		}
		errs = append(errs, validateLoop(f, name, h)...)
		for _, p := range h {
			if !f.Outer.Contains(p) {
				add(SeverityWarning, "%s point (%g, %g) is outside the outer loop", name, p.U, p.V)
				break
			}
		}
	}
	for _, p := range f.Points {
		if !f.Outer.Contains(p) {
			add(SeverityWarning, "interior point (%g, %g) is outside the outer loop", p.U, p.V)
		}
	}
	if f.Surface == SurfaceSphere {
		_, vmin, _, vmax := f.Bounds()
		if vmin <= -math.Pi/2 || vmax >= math.Pi/2 {
			add(SeverityWarning, "sphere patch reaches a pole")
		}
	}
	return errs
}

func validateLoop(f *Face, name string, l Loop) []ValidationError {
	var errs []ValidationError
	for i, p := range l {
		if q := l[(i+1)%len(l)]; p == q {
			errs = append(errs, ValidationError{Face: f.Name,
				Message: fmt.Sprintf("%s repeats point (%g, %g)", name, p.U, p.V), Severity: SeverityWarning})
		}
	}
	n := len(l)
	for i := 0; i < n; i++ {
		a, b := l[i], l[(i+1)%n]
		for k := i + 2; k < n; k++ {
			if i == 0 && k == n-1 {
				continue
			}
			if segmentsIntersect(a, b, l[k], l[(k+1)%n]) {
				errs = append(errs, ValidationError{Face: f.Name,
					Message: fmt.Sprintf("%s self-intersects between edges %d and %d", name, i, k), Severity: SeverityError})
				return errs
			}
		}
	}
	return errs
}

func cross(o, a, b UV) float64 {
	return (a.U-o.U)*(b.V-o.V) - (a.V-o.V)*(b.U-o.U)
}

func segmentsIntersect(a, b, c, d UV) bool {
	d1, d2 := cross(a, b, c), cross(a, b, d)
	d3, d4 := cross(c, d, a), cross(c, d, b)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}
