package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/openfroyo/rendercaps/pkg/caps"
	"github.com/openfroyo/rendercaps/pkg/script"
)

// DefaultTimeout bounds one Select call when none is configured.
const DefaultTimeout = 30 * time.Second

// maxSteps caps the Starlark computation spent on a single Select.
const maxSteps = 10_000_000

// ErrTimeout is returned when a predicate runs past the evaluator timeout.
var ErrTimeout = errors.New("starlark execution timeout")

// Evaluator runs selection predicates against capability sets.
type Evaluator struct {
	timeout time.Duration
}

// NewEvaluator creates an evaluator. A zero timeout means DefaultTimeout.
func NewEvaluator(timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{timeout: timeout}
}

// Select returns the sorted names of the profiles matching src.
func (e *Evaluator) Select(ctx context.Context, src string, profiles map[string]*caps.Set) ([]string, error) {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	thread := newThread()
	stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
	defer stop()

	pred, err := compile(thread, src)
	if err != nil {
		return nil, e.wrap(ctx, err)
	}

	var matched []string
	for _, name := range names {
		if ctx.Err() != nil {
			return nil, e.wrap(ctx, ctx.Err())
		}
		ok, err := pred(thread, name, profiles[name])
		if err != nil {
			return nil, e.wrap(ctx, fmt.Errorf("profile %s: %w", name, err))
		}
		if ok {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// Match reports whether a single profile satisfies src.
func (e *Evaluator) Match(ctx context.Context, src, name string, set *caps.Set) (bool, error) {
	got, err := e.Select(ctx, src, map[string]*caps.Set{name: set})
	if err != nil {
		return false, err
	}
	return len(got) == 1, nil
}

func (e *Evaluator) wrap(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v: %v", ErrTimeout, e.timeout, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func newThread() *starlark.Thread {
	thread := &starlark.Thread{
		Name:  "rendercaps-select",
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(maxSteps)
	return thread
}

type predicate func(thread *starlark.Thread, name string, set *caps.Set) (bool, error)

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"struct":  starlark.NewBuiltin("struct", starlarkstruct.Make),
		"version": starlark.NewBuiltin("version", builtinVersion),
	}
}

// compile turns src into a predicate. Sources that define select are run as
// programs; anything else is an expression over caps.
func compile(thread *starlark.Thread, src string) (predicate, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty predicate")
	}

	if !strings.Contains(src, "def select") {
		return func(thread *starlark.Thread, name string, set *caps.Set) (bool, error) {
			env := predeclared()
			capsVal, err := capsValue(name, set)
			if err != nil {
				return false, err
			}
			env["caps"] = capsVal
			v, err := starlark.Eval(thread, "select", src, env)
			if err != nil {
				return false, err
			}
			return bool(v.Truth()), nil
		}, nil
	}

	globals, err := starlark.ExecFile(thread, "select.star", src, predeclared())
	if err != nil {
		return nil, err
	}
	fn, ok := globals["select"].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("select is not a function")
	}
	return func(thread *starlark.Thread, name string, set *caps.Set) (bool, error) {
		capsVal, err := capsValue(name, set)
		if err != nil {
			return false, err
		}
		v, err := starlark.Call(thread, fn, starlark.Tuple{capsVal}, nil)
		if err != nil {
			return false, err
		}
		return bool(v.Truth()), nil
	}, nil
}

// capsValue exposes a set as a frozen struct keyed by script keys.
func capsValue(name string, set *caps.Set) (starlark.Value, error) {
	fields := script.Fields(set)
	dict := make(starlark.StringDict, len(fields)+1)
	for k, v := range fields {
		sv, err := toStarlarkValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		dict[k] = sv
	}
	dict["name"] = starlark.String(name)

	s := starlarkstruct.FromStringDict(starlark.String("caps"), dict)
	s.Freeze()
	return s, nil
}
