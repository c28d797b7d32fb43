package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// PermissionResolver lets a host application turn an ActionAsk decision into
// a final allow/deny (e.g. by prompting a user), keeping the request pending
// if it returns ActionAsk again.
type PermissionResolver func(ctx context.Context, call Call, decision Decision) (Decision, error)

// Executor wires registry lookup with permission checks and output
// truncation/spooling. Construct it with NewExecutor; the zero value has no
// registry and every call fails.
type Executor struct {
	registry  *Registry
	matcher   *Matcher
	cache     *Cache
	persister *OutputPersister
	resolve   PermissionResolver
	maxLines  int
	maxBytes  int
}

// NewExecutor constructs an executor backed by registry (a fresh one when
// nil, so callers never get a nil executor by accident).
func NewExecutor(registry *Registry) *Executor {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Executor{registry: registry, cache: NewCache(), maxLines: 2000, maxBytes: 51200}
}

func (e *Executor) Registry() *Registry { return e.registry }

func (e *Executor) WithMatcher(m *Matcher) *Executor {
	clone := *e
	clone.matcher = m
	return &clone
}

func (e *Executor) WithPermissionResolver(r PermissionResolver) *Executor {
	clone := *e
	clone.resolve = r
	return &clone
}

func (e *Executor) WithOutputPersister(p *OutputPersister) *Executor {
	clone := *e
	clone.persister = p
	return &clone
}

// WithTruncationLimits overrides the default 2000-line/51200-byte output
// truncation thresholds.
func (e *Executor) WithTruncationLimits(maxLines, maxBytes int) *Executor {
	clone := *e
	clone.maxLines = maxLines
	clone.maxBytes = maxBytes
	return &clone
}

// Execute runs a single tool call: permission check (with cache), parameter
// clone, the tool itself, then output truncation and persistence.
func (e *Executor) Execute(ctx context.Context, call Call) (*CallResult, error) {
	if e == nil || e.registry == nil {
		return nil, errors.New("executor is not initialised")
	}
	if strings.TrimSpace(call.Name) == "" {
		return nil, errors.New("tool name is empty")
	}

	if err := e.checkPermission(ctx, call); err != nil {
		return nil, err
	}

	t, err := e.registry.Get(call.Name)
	if err != nil {
		return nil, err
	}

	params := call.cloneParams()
	started := time.Now()

	var res *Result
	var execErr error
	if st, ok := t.(StreamingTool); ok && call.StreamSink != nil {
		res, execErr = st.StreamExecute(ctx, params, call.StreamSink)
	} else {
		res, execErr = t.Execute(ctx, params)
	}

	if res != nil {
		if e.maxLines > 0 || e.maxBytes > 0 {
			if truncated, didTruncate := TruncateLines(res.Output, e.maxLines, e.maxBytes); didTruncate {
				res.Output = truncated
			}
		}
		if e.persister != nil {
			_ = e.persister.MaybePersist(call, res)
		}
	}

	return &CallResult{Call: call, Result: res, Err: execErr, StartedAt: started, CompletedAt: time.Now()}, execErr
}

// ExecuteAll runs calls concurrently, preserving result ordering.
func (e *Executor) ExecuteAll(ctx context.Context, calls []Call) []CallResult {
	results := make([]CallResult, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i := range calls {
		call := calls[i]
		go func(idx int) {
			defer wg.Done()
			if ctx != nil && ctx.Err() != nil {
				results[idx] = CallResult{Call: call, Err: ctx.Err()}
				return
			}
			cr, err := e.Execute(ctx, call)
			if cr != nil {
				results[idx] = *cr
				return
			}
			results[idx] = CallResult{Call: call, Err: err}
		}(i)
	}
	wg.Wait()
	return results
}

func (e *Executor) checkPermission(ctx context.Context, call Call) error {
	if e.matcher == nil {
		return nil
	}
	if e.cache != nil {
		if action, ok := e.cache.Get(call.Name, call.WorkingDir); ok {
			return actionToErr(call, action, "")
		}
	}

	target := deriveTarget(call)
	decision := e.matcher.Match(call.Name, target)

	if decision.Action == ActionAsk && e.resolve != nil {
		resolved, err := e.resolve(ctx, call, decision)
		if err != nil {
			return fmt.Errorf("tool %s permission resolution failed: %w", call.Name, err)
		}
		decision = resolved
	}

	if e.cache != nil && decision.Action != ActionAsk && decision.Action != ActionUnknown {
		e.cache.Put(call.Name, call.WorkingDir, decision.Action)
	}

	return actionToErr(call, decision.Action, decision.Rule)
}

func actionToErr(call Call, action Action, rule string) error {
	switch action {
	case ActionDeny:
		return fmt.Errorf("tool %s denied by rule %q", call.Name, rule)
	case ActionAsk:
		return fmt.Errorf("tool %s requires approval (rule %q)", call.Name, rule)
	default:
		return nil
	}
}
