// Package chain runs an ordered list of provider adapters for one capability,
// either one after another until something succeeds or all at once.
package chain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/persona-backend/internal/provider"
)

// Report records which providers succeeded and how the others failed.
type Report struct {
	Capability provider.Capability                `json:"capability"`
	Succeeded  []provider.ID                      `json:"succeeded"`
	Failed     map[provider.ID]provider.ErrorKind `json:"failed"`
}

func newReport(c provider.Capability) Report {
	return Report{Capability: c, Failed: map[provider.ID]provider.ErrorKind{}}
}

func (r Report) AnySuccess() bool { return len(r.Succeeded) > 0 }

// AllUnavailable is true when nothing succeeded and every failure was a missing credential.
func (r Report) AllUnavailable() bool {
	if len(r.Succeeded) > 0 {
		return false
	}
	for _, k := range r.Failed {
		if k != provider.KindUnavailable {
			return false
		}
	}
	return true
}

func (r *Report) record(id provider.ID, ok bool, kind provider.ErrorKind) {
	if ok {
		r.Succeeded = append(r.Succeeded, id)
		return
	}
	r.Failed[id] = kind
}

// Sequential calls adapters in order and returns the first success. When every adapter
// fails the result is KindAllProvidersFailed, or KindUnavailable when none was configured.
func Sequential[A provider.Adapter, T any](
	ctx context.Context,
	capability provider.Capability,
	adapters []A,
	call func(ctx context.Context, a A) provider.Result[T],
) (provider.Result[T], Report) {
	rep := newReport(capability)
	for _, a := range adapters {
		if err := ctx.Err(); err != nil {
			rep.record(a.ID(), false, provider.KindTimeout)
			continue
		}
		res := safeCall(ctx, a, call)
		rep.record(a.ID(), res.OK, res.Kind)
		if res.OK {
			return res, rep
		}
	}
	return exhausted[T](rep), rep
}

// ConcurrentAll starts every adapter at once and waits for all of them. Results are
// index-aligned with adapters. One failure never cancels the others.
func ConcurrentAll[A provider.Adapter, T any](
	ctx context.Context,
	capability provider.Capability,
	adapters []A,
	call func(ctx context.Context, a A) provider.Result[T],
) ([]provider.Result[T], Report) {
	results := make([]provider.Result[T], len(adapters))
	var g errgroup.Group
	for i, a := range adapters {
		i, a := i, a
		g.Go(func() error {
			results[i] = safeCall(ctx, a, call)
			return nil
		})
	}
	_ = g.Wait()

	rep := newReport(capability)
	for i, a := range adapters {
		rep.record(a.ID(), results[i].OK, results[i].Kind)
	}
	return results, rep
}

// FirstOK returns the first successful result in slice order.
func FirstOK[T any](results []provider.Result[T]) (provider.Result[T], bool) {
	for _, r := range results {
		if r.OK {
			return r, true
		}
	}
	return provider.Result[T]{}, false
}

func safeCall[A provider.Adapter, T any](ctx context.Context, a A, call func(ctx context.Context, a A) provider.Result[T]) (res provider.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = provider.Failure[T](a.ID(), provider.KindUnknown, fmt.Sprintf("adapter panic: %v", r))
		}
	}()
	return call(ctx, a)
}

func exhausted[T any](rep Report) provider.Result[T] {
	if rep.AllUnavailable() {
		return provider.Failure[T](provider.None, provider.KindUnavailable,
			fmt.Sprintf("no %s provider configured", rep.Capability))
	}
	parts := make([]string, 0, len(rep.Failed))
	for id, k := range rep.Failed {
		parts = append(parts, fmt.Sprintf("%s=%s", id, k))
	}
	sort.Strings(parts)
	return provider.Failure[T](provider.None, provider.KindAllProvidersFailed,
		fmt.Sprintf("all %s providers failed: %s", rep.Capability, strings.Join(parts, ", ")))
}
