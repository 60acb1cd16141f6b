package engine

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
)

// installHostAPI injects the script-visible globals into the VM.
func (e *Engine) installHostAPI() error {
	if err := e.vm.Set("imports", e.importsFunc); err != nil {
		return err
	}
	if err := e.vm.Set("set_config", e.setConfigFunc); err != nil {
		return err
	}
	if err := e.vm.Set("option", e.optionFunc); err != nil {
		return err
	}
	if err := e.vm.Set("env", e.envFunc); err != nil {
		return err
	}
	return e.registerLog()
}

// importsFunc resolves an import name through the caller-supplied
// resolver first, then the engine built-ins. An unresolvable name throws
// into the script.
func (e *Engine) importsFunc(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()

	if e.imports != nil {
		if mod, ok := e.imports(name); ok {
			e.logger.Debug().Str("import", name).Msg("import intercepted")
			return e.vm.ToValue(mod)
		}
	}
	if mod, ok := e.builtinImport(name); ok {
		e.logger.Debug().Str("import", name).Msg("import resolved to built-in")
		return e.vm.ToValue(mod)
	}
	panic(e.vm.NewGoError(fmt.Errorf("%w: %s", ErrUnknownImport, name)))
}

// setConfigFunc queues a deferred configuration commit. value may be a
// constant or a zero-argument resolver function; either way nothing runs
// until the queue is drained.
func (e *Engine) setConfigFunc(name string, value goja.Value) {
	e.queue = append(e.queue, &workItem{
		kind:  kindSetConfig,
		name:  name,
		value: value,
	})
	e.logger.Debug().Str("name", name).Msg("config value queued")
}

// optionFunc reads a command-line option. "--name=value" yields the
// value, a bare "--name" yields true, otherwise the supplied default (or
// undefined) is returned.
func (e *Engine) optionFunc(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	flag := "--" + strings.TrimPrefix(name, "--")

	for _, arg := range e.args {
		if arg == flag {
			return e.vm.ToValue(true)
		}
		if strings.HasPrefix(arg, flag+"=") {
			return e.vm.ToValue(strings.TrimPrefix(arg, flag+"="))
		}
	}
	if len(call.Arguments) > 1 {
		return call.Argument(1)
	}
	return goja.Undefined()
}

// envFunc reads a variable from the engine's copied environment,
// returning null when unset.
func (e *Engine) envFunc(name string) any {
	if v, ok := e.environ[name]; ok {
		return v
	}
	return nil
}

// registerLog injects the log object. Messages go to the structured
// logger and, verbatim, to the optional output writer.
func (e *Engine) registerLog() error {
	logObj := e.vm.NewObject()

	emit := func(level zerolog.Level) func(msg string) {
		return func(msg string) {
			e.logger.WithLevel(level).Msg(msg)
			if e.out != nil {
				fmt.Fprintln(e.out, msg)
			}
		}
	}
	levels := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}
	for name, level := range levels {
		if err := logObj.Set(name, emit(level)); err != nil {
			return err
		}
	}
	return e.vm.Set("log", logObj)
}
