// Package script evaluates meshing jobs written in a small Lisp dialect.
// Sources run in a fresh zygomys sandbox; the builtins (uv, outline, rect,
// polygon, mesher, face, job) populate a job.Job as they are called.
//
//	(job "bracket"
//	  (mesher :length 0.5 :deflection 0.01)
//	  (face "top" :surface :plane :outer (rect 0 0 4 4)
//	        :holes (list (polygon 2 2 0.5 12))))
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/tessera/pkg/job"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a non-fatal error in user code, such as a parse error or
// a builtin called with bad arguments.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Evaluator runs job scripts. It is safe for concurrent use; each call
// to Evaluate gets its own sandbox and only the latest call's result is
// delivered.
type Evaluator struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration

	// Defaults are the mesher parameters a job starts from.
	Defaults job.Params
}

// NewEvaluator returns an evaluator that gives up after timeout. A zero
// timeout selects DefaultTimeout.
func NewEvaluator(timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{timeout: timeout, Defaults: job.DefaultParams()}
}

// Evaluate runs source and returns the job it describes.
//
//   - On success: job, nil, nil
//   - On parse or runtime failure in user code: nil, eval errors, nil
//   - On timeout, panic or a superseded call: nil, nil, error
func (e *Evaluator) Evaluate(source string) (*job.Job, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		j, evalErrs, err := e.evaluate(source)
		ch <- evalResult{job: j, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
}

func (e *Evaluator) evaluate(source string) (*job.Job, []EvalError, error) {
	j := job.New("job")
	j.Params = e.Defaults
	if strings.TrimSpace(source) == "" {
		return j, nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, j)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return j, nil, nil
}

var (
	linePattern      = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*`)
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*`)
)

// parseZygomysError extracts the line number from a zygomys error when
// the message carries one. The rest of the message is kept as is.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatchIndex(msg); m != nil {
			line, _ := strconv.Atoi(msg[m[2]:m[3]])
			rest := strings.TrimSpace(msg[:m[0]] + msg[m[1]:])
			return []EvalError{{Line: line, Message: rest}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
