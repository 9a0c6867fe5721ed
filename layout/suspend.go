package layout

import (
	"context"
	"runtime"

	"github.com/ByLCY/flowbox/resource"
)

// spinBudget 是在没有进行中的加载时，挂起前让出调度的次数。
const spinBudget = 8

// await 协作式地等待 p 完成。
// 有进行中的加载时直接阻塞在 p 上；否则先让出若干次调度，仍未完成再阻塞。
func await[T any](ctx context.Context, tracker *resource.Tracker, p *resource.Pending[T]) (T, error) {
	for spins := 0; ; spins++ {
		if v, ok, err := p.Poll(); ok {
			return v, err
		}
		if tracker.Outstanding() > 0 || spins >= spinBudget {
			select {
			case <-p.Done():
				return p.Result()
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}
		runtime.Gosched()
	}
}
