// Package engine evaluates declarative configure scripts. Scripts are
// JavaScript run in a goja VM with a small host API: they declare
// configuration values through set_config, which queues deferred work
// items; nothing is committed until the queue is drained, either fully
// (Run) or one named value at a time (ResolveOne). All external
// capabilities reach the script through imports(), which is routed
// through a caller-supplied resolver before the engine's own built-ins.
package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ResolverFunc resolves an import name to a module value. The boolean is
// false when the resolver does not cover the name.
type ResolverFunc func(name string) (any, bool)

// Config holds everything an Engine needs at construction.
type Config struct {
	// Args is the command-line argument vector visible to option().
	Args []string
	// Environ is the environment visible to env(). It is copied.
	Environ map[string]string
	// Config seeds the configuration being built. It is copied.
	Config map[string]any
	// Imports is consulted for every imports() call before the
	// engine's built-in modules. May be nil.
	Imports ResolverFunc
	// Out, when set, receives script log lines verbatim.
	Out io.Writer
	// Logger receives structured events for every host-API call.
	Logger zerolog.Logger
}

type itemKind int

const (
	kindSetConfig itemKind = iota
)

// workItem is one pending entry on the execution queue. A consumed item
// is never executed again.
type workItem struct {
	kind  itemKind
	name  string
	value goja.Value
	done  bool
}

// Engine evaluates configure scripts. One engine instance serves one
// evaluation; it is single-threaded and never shared.
type Engine struct {
	vm          *goja.Runtime
	queue       []*workItem
	config      map[string]any
	environ     map[string]string
	args        []string
	imports     ResolverFunc
	out         io.Writer
	logger      zerolog.Logger
	executionID string
}

// New builds an Engine and installs the host API into a fresh VM.
func New(cfg Config) (*Engine, error) {
	environ := make(map[string]string, len(cfg.Environ))
	for k, v := range cfg.Environ {
		environ[k] = v
	}
	config := make(map[string]any, len(cfg.Config))
	for k, v := range cfg.Config {
		config[k] = v
	}

	e := &Engine{
		vm:          goja.New(),
		config:      config,
		environ:     environ,
		args:        append([]string(nil), cfg.Args...),
		imports:     cfg.Imports,
		out:         cfg.Out,
		executionID: uuid.NewString(),
	}
	e.logger = cfg.Logger.With().Str("execution_id", e.executionID).Logger()

	e.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := e.installHostAPI(); err != nil {
		return nil, fmt.Errorf("engine: install host API: %w", err)
	}
	return e, nil
}

// ExecutionID returns the identifier attached to every log event of this
// evaluation.
func (e *Engine) ExecutionID() string {
	return e.executionID
}

// RunScript evaluates src as a configure script. Declarations made by
// the script land on the execution queue; failures surface as
// *ScriptError.
func (e *Engine) RunScript(name, src string) error {
	if _, err := e.vm.RunScript(name, src); err != nil {
		return wrapScriptError(err, name)
	}
	e.logger.Debug().Str("script", name).Int("pending", len(e.queue)).Msg("script evaluated")
	return nil
}

// Include reads a script file and evaluates it. Entry scripts live under
// the trusted source root, so this is a real file read.
func (e *Engine) Include(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("engine: read script: %w", err)
	}
	return e.RunScript(filepath.Base(path), string(src))
}

// ResolveOne walks the queue in order and executes only the first item
// that commits the configuration value name, if it is still pending.
// Items that do not match stay pending; a consumed item is never
// re-executed, so repeated calls progressively evaluate the queue. The
// boolean reports whether the configuration now holds a value for name
// (committed by this call, an earlier one, or the initial seed).
func (e *Engine) ResolveOne(name string) (any, bool, error) {
	for _, item := range e.queue {
		if item.kind != kindSetConfig || item.name != name {
			continue
		}
		if !item.done {
			if err := e.execute(item); err != nil {
				return nil, false, err
			}
		}
		v, ok := e.config[name]
		return v, ok, nil
	}
	v, ok := e.config[name]
	return v, ok, nil
}

// Run drains every pending item in queue order.
func (e *Engine) Run() error {
	for _, item := range e.queue {
		if item.done {
			continue
		}
		if err := e.execute(item); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the committed configuration value for name.
func (e *Engine) Get(name string) (any, bool) {
	v, ok := e.config[name]
	return v, ok
}

// Snapshot returns a copy of the configuration committed so far.
func (e *Engine) Snapshot() map[string]any {
	out := make(map[string]any, len(e.config))
	for k, v := range e.config {
		out[k] = v
	}
	return out
}

// Environ returns a copy of the engine's environment.
func (e *Engine) Environ() map[string]string {
	out := make(map[string]string, len(e.environ))
	for k, v := range e.environ {
		out[k] = v
	}
	return out
}

// execute commits one queue item. The item is marked consumed before the
// resolver runs so that a failing resolver is not retried.
func (e *Engine) execute(item *workItem) error {
	item.done = true

	value := item.value
	if fn, ok := goja.AssertFunction(value); ok {
		resolved, err := fn(goja.Undefined())
		if err != nil {
			return wrapScriptError(err, item.name)
		}
		value = resolved
	}

	exported := export(value)
	if exported != nil {
		e.config[item.name] = exported
	}
	e.logger.Debug().Str("name", item.name).Interface("value", exported).Msg("config value committed")
	return nil
}

// wrapScriptError converts goja failures to *ScriptError.
func wrapScriptError(err error, script string) error {
	if exception, ok := err.(*goja.Exception); ok {
		return &ScriptError{Script: script, Cause: fmt.Errorf("%s", exception.String())}
	}
	return &ScriptError{Script: script, Cause: err}
}

// export converts a goja value to a plain Go value.
func export(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
