package script

import (
	"github.com/dop251/goja"
	"github.com/warpdl/cueline/pkg/source"
)

func (r *Runtime) transportObject() *goja.Object {
	tr := r.s.Transport()
	ctx := r.s.Context()
	obj := r.NewObject()

	// ctxTime converts argument i into a context time.
	ctxTime := func(call goja.FunctionCall, i int) float64 {
		if absent(call.Argument(i)) {
			return ctx.Now()
		}
		return call.Argument(i).ToFloat()
	}
	methods := map[string]func(goja.FunctionCall) goja.Value{
		"start": func(call goja.FunctionCall) goja.Value {
			at := ctxTime(call, 0)
			if absent(call.Argument(1)) {
				tr.Start(at)
			} else {
				tr.StartFrom(at, call.Argument(1).ToFloat())
			}
			return obj
		},
		"stop": func(call goja.FunctionCall) goja.Value {
			tr.Stop(ctxTime(call, 0))
			return obj
		},
		"pause": func(call goja.FunctionCall) goja.Value {
			tr.Pause(ctxTime(call, 0))
			return obj
		},
		"seek": func(call goja.FunctionCall) goja.Value {
			if err := tr.Seek(call.Argument(0).ToFloat()); err != nil {
				r.throw(err)
			}
			return obj
		},
		"loop": func(call goja.FunctionCall) goja.Value {
			if err := tr.SetLoop(call.Argument(0).ToFloat(), call.Argument(1).ToFloat()); err != nil {
				r.throw(err)
			}
			return obj
		},
		"noLoop": func(call goja.FunctionCall) goja.Value {
			tr.DisableLoop()
			return obj
		},
		"seconds": func(call goja.FunctionCall) goja.Value {
			return r.ToValue(tr.Seconds())
		},
		"state": func(call goja.FunctionCall) goja.Value {
			return r.ToValue(tr.State().String())
		},
	}
	for name, fn := range methods {
		obj.Set(name, fn)
	}
	return obj
}

// source implements the source(name) global.
func (r *Runtime) source(call goja.FunctionCall) goja.Value {
	src, err := r.s.Source(call.Argument(0).String())
	if err != nil {
		r.throw(err)
	}
	return r.sourceObject(src)
}

func (r *Runtime) sourceObject(src *source.Source) *goja.Object {
	obj := r.NewObject()
	// check throws err into the script or returns the object for chaining
	check := func(err error) goja.Value {
		if err != nil {
			r.throw(err)
		}
		return obj
	}
	methods := map[string]func(goja.FunctionCall) goja.Value{
		"start": func(call goja.FunctionCall) goja.Value {
			return check(src.Start(timeArg(call, 0), floatArg(call, 1), floatArg(call, 2)))
		},
		"stop": func(call goja.FunctionCall) goja.Value {
			return check(src.Stop(timeArg(call, 0)))
		},
		"restart": func(call goja.FunctionCall) goja.Value {
			return check(src.Restart(timeArg(call, 0), floatArg(call, 1), floatArg(call, 2)))
		},
		"sync": func(call goja.FunctionCall) goja.Value {
			return check(src.Sync())
		},
		"unsync": func(call goja.FunctionCall) goja.Value {
			return check(src.Unsync())
		},
		"dispose": func(call goja.FunctionCall) goja.Value {
			src.Dispose()
			return obj
		},
		"state": func(call goja.FunctionCall) goja.Value {
			return r.ToValue(src.State().String())
		},
		"timeline": func(call goja.FunctionCall) goja.Value {
			evs := src.Timeline()
			out := make([]any, 0, len(evs))
			for _, ev := range evs {
				out = append(out, map[string]any{
					"time":        ev.Time,
					"state":       ev.State.String(),
					"offset":      ev.Offset,
					"duration":    ev.Duration,
					"implicitEnd": ev.ImplicitEnd,
				})
			}
			return r.ToValue(out)
		},
	}
	for name, fn := range methods {
		obj.Set(name, fn)
	}
	obj.Set("name", src.ID())
	return obj
}
