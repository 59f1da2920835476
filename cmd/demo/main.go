// Command demo exercises a fastpool pool directly: a fan-in of closures, a
// panicking task proving isolation, a yield-once async future, and a bounded
// periodic task, printing the result of each step as it goes; it prints no
// pool stats snapshots. Unlike the teacher's
// demo, this one has nothing to recover from a crash: persistence is out of
// scope (see SPEC_FULL.md's Non-goals), so there is only a "run" mode.
package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AlvaroMS25/fast-pool/internal/task"
	"github.com/AlvaroMS25/fast-pool/pkg/pool"
)

func main() {
	p, err := pool.NewBuilder().WithThreads(4).Build()
	if err != nil {
		fmt.Printf("failed to build pool: %v\n", err)
		return
	}
	h := p.Handle()
	defer h.Shutdown()

	fmt.Println("fan-in: 1000 closures returning their index")
	const n = 1000
	handles := make([]*pool.JoinHandle[int], n)
	for i := 0; i < n; i++ {
		i := i
		handles[i] = pool.Spawn(h, func() int { return i })
	}
	sum := 0
	for _, jh := range handles {
		v, err := jh.Wait()
		if err != nil {
			fmt.Printf("  task failed: %v\n", err)
			continue
		}
		sum += v
	}
	fmt.Printf("  sum of 0..%d == %d\n", n-1, sum)

	fmt.Println("panic isolation: a task that panics does not take down the pool")
	jh := pool.Spawn(h, func() int { panic("demo panic") })
	if _, err := jh.Wait(); err != nil {
		fmt.Printf("  recovered: %v\n", err)
	}
	v, err := pool.Spawn(h, func() int { return 7 }).Wait()
	fmt.Printf("  pool still accepts work: %d, err=%v\n", v, err)

	fmt.Println("async: a future that yields once before completing")
	fut := &yieldOnceFuture{value: "done"}
	av, err := pool.SpawnAsync[string](h, fut).Wait()
	fmt.Printf("  result=%q err=%v polls=%d\n", av, err, fut.polls.Load())

	fmt.Println("periodic: a task that runs exactly 3 times, 200ms apart")
	var runs atomic.Int32
	h.Periodic(func() error {
		n := runs.Add(1)
		fmt.Printf("  tick %d\n", n)
		return nil
	}, 200*time.Millisecond, 3)
	time.Sleep(1 * time.Second)

	fmt.Println("done")
}

type yieldOnceFuture struct {
	polls atomic.Int32
	value string
}

func (f *yieldOnceFuture) Poll(w *task.Waker[string]) (string, task.Status) {
	if f.polls.Add(1) == 1 {
		clone := w.Clone()
		clone.Wake()
		return "", task.Pending
	}
	return f.value, task.Ready
}
