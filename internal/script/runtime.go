// Package script runs cue scripts: JavaScript programs, executed with goja,
// that start and stop the sources and the transport of a session.
//
// A script sees these globals:
//
//	transport.start(t?, offset?)  transport.stop(t?)  transport.pause(t?)
//	transport.seek(s)  transport.loop(start, end)  transport.noLoop()
//	transport.seconds()  transport.state()
//	source(name) -> {start(t?, offset?, duration?), stop(t?),
//	                 restart(t?, offset?, duration?), sync(), unsync(),
//	                 dispose(), state(), timeline()}
//	at(t, fn)  now()  print(...)  require(path)
//
// Omitted times mean "now". Setting the global end tells the host how far
// to run the context.
package script

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/dop251/goja"
	requirePkg "github.com/dop251/goja_nodejs/require"
	"github.com/spf13/afero"
	"github.com/warpdl/cueline/internal/session"
	"github.com/warpdl/cueline/pkg/clock"
	"github.com/warpdl/cueline/pkg/logger"
	"github.com/warpdl/cueline/pkg/source"
)

// EndGlobal is the global a script sets to choose its run length.
const EndGlobal = "end"

// Runtime is a goja runtime bound to one session.
// A Runtime is not safe for concurrent use.
type Runtime struct {
	*goja.Runtime
	req  *requirePkg.RequireModule
	s    *session.Session
	fs   afero.Fs
	wd   string
	out  io.Writer
	log  logger.Logger
	errs []error
}

// NewRuntime returns a runtime for s. Scripts and required modules are read
// from fsys relative to wd. print writes to out.
func NewRuntime(s *session.Session, fsys afero.Fs, wd string, out io.Writer, log logger.Logger) (*Runtime, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if out == nil {
		out = io.Discard
	}
	r := &Runtime{
		Runtime: goja.New(),
		s:       s,
		fs:      fsys,
		wd:      wd,
		out:     out,
		log:     log,
	}
	registry := requirePkg.NewRegistry(requirePkg.WithLoader(r.load))
	r.req = registry.Enable(r.Runtime)

	globals := map[string]any{
		"print":     r.print,
		"at":        r.at,
		"now":       func() float64 { return s.Context().CurrentTime() },
		"source":    r.source,
		"transport": r.transportObject(),
	}
	for name, v := range globals {
		if err := r.Set(name, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// load reads a module for require.
func (r *Runtime) load(p string) ([]byte, error) {
	if !path.IsAbs(p) {
		p = path.Join(r.wd, p)
	}
	b, err := afero.ReadFile(r.fs, p)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return nil, requirePkg.ModuleFileDoesNotExistError
	}
	return b, err
}

// RunFile runs the script at p.
func (r *Runtime) RunFile(p string) error {
	if !path.IsAbs(p) {
		p = path.Join(r.wd, p)
	}
	b, err := afero.ReadFile(r.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrScriptNotFound, p)
		}
		return err
	}
	return r.Run(p, string(b))
}

// Run runs code as the script called name.
func (r *Runtime) Run(name, code string) error {
	if _, err := r.RunScript(name, code); err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

// End returns the run length set by the script through the end global.
func (r *Runtime) End() (clock.Seconds, bool) {
	v := r.Get(EndGlobal)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, false
	}
	return v.ToFloat(), true
}

// Err returns the errors thrown by at() callbacks, joined.
func (r *Runtime) Err() error {
	return errors.Join(r.errs...)
}

func (r *Runtime) print(call goja.FunctionCall) goja.Value {
	for i, v := range call.Arguments {
		if i > 0 {
			fmt.Fprint(r.out, " ")
		}
		fmt.Fprint(r.out, v.String())
	}
	fmt.Fprint(r.out, "\n")
	return goja.Undefined()
}

func (r *Runtime) at(call goja.FunctionCall) goja.Value {
	t := call.Argument(0).ToFloat()
	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		panic(r.NewGoError(ErrNotFunction))
	}
	r.s.Context().At(t, func(fired clock.Seconds) {
		if _, err := fn(goja.Undefined(), r.ToValue(fired)); err != nil {
			r.log.Error("script: at(%.3f): %s", t, err.Error())
			r.errs = append(r.errs, fmt.Errorf("at(%.3f): %w", t, err))
		}
	})
	return goja.Undefined()
}

// throw raises err inside the calling script.
func (r *Runtime) throw(err error) {
	panic(r.NewGoError(err))
}

func absent(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// timeArg converts argument i into a scheduling time.
func timeArg(call goja.FunctionCall, i int) source.Time {
	v := call.Argument(i)
	if absent(v) {
		return source.Now
	}
	return source.At(v.ToFloat())
}

func floatArg(call goja.FunctionCall, i int) float64 {
	v := call.Argument(i)
	if absent(v) {
		return 0
	}
	return v.ToFloat()
}
