package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/npuboj/judgecore/language"
	"github.com/npuboj/judgecore/types"
	"go.uber.org/zap/zaptest"
)

// fakeStrategy echoes inputs and passes when answers equal inputs
type fakeStrategy struct {
	dir   string
	delay time.Duration
}

func (s *fakeStrategy) CompileAndRun(ctx context.Context, src string, inputs [][]byte, limit types.Limitation) []types.Outcome {
	time.Sleep(s.delay)
	if src == "bad" {
		return []types.Outcome{types.CompileErrorOutcome("bad")}
	}
	rt := make([]types.Outcome, 0, len(inputs))
	for _, in := range inputs {
		rt = append(rt, types.Outcome{Code: types.CodeSuccess, Stdout: in})
	}
	return rt
}

func (s *fakeStrategy) CompileAndJudge(ctx context.Context, src string, inputs, answers [][]byte, limit types.Limitation) ([]types.Verdict, error) {
	if len(inputs) != len(answers) {
		return nil, language.ErrLengthMismatch
	}
	rt := make([]types.Verdict, 0, len(inputs))
	for i, o := range s.CompileAndRun(ctx, src, inputs, limit) {
		if string(o.Stdout) == string(answers[i]) {
			rt = append(rt, types.VerdictPass)
		} else {
			rt = append(rt, types.VerdictFail)
		}
	}
	return rt, nil
}

func newTestWorker(t *testing.T, parallelism int, delay time.Duration, ob func(Response)) (Worker, *sync.Map) {
	t.Helper()
	built := new(sync.Map)
	w := New(Config{
		Builder: func(dir string) (language.Strategy, error) {
			built.Store(dir, true)
			return &fakeStrategy{dir: dir, delay: delay}, nil
		},
		Parallelism:  parallelism,
		WorkDir:      t.TempDir(),
		Logger:       zaptest.NewLogger(t),
		ExecObserver: ob,
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return w, built
}

func TestWorkerProvision(t *testing.T) {
	w, built := newTestWorker(t, 3, 0, nil)
	var dirs []string
	built.Range(func(k, _ any) bool {
		dirs = append(dirs, k.(string))
		return true
	})
	if len(dirs) != 3 {
		t.Fatalf("built %d strategies, want 3", len(dirs))
	}
	for _, d := range dirs {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Errorf("work dir %s: %v", d, err)
		}
	}
	w.Shutdown()
	for _, d := range dirs {
		if _, err := os.Stat(d); !os.IsNotExist(err) {
			t.Errorf("work dir %s not removed: %v", d, err)
		}
	}
}

func TestWorkerStartFailure(t *testing.T) {
	w := New(Config{
		Builder: func(dir string) (language.Strategy, error) {
			if filepath.Base(dir) == "1" {
				return nil, errors.New("no compiler")
			}
			return &fakeStrategy{dir: dir}, nil
		},
		Parallelism: 2,
		WorkDir:     t.TempDir(),
	})
	if err := w.Start(); err == nil {
		t.Fatal("Start succeeded with a failing builder")
	}
}

func TestWorkerSubmit(t *testing.T) {
	var (
		mu       sync.Mutex
		observed []string
	)
	w, _ := newTestWorker(t, 2, 0, func(r Response) {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, r.RequestID)
	})
	defer w.Shutdown()

	limit := types.Limitation{Time: 1, Memory: 64}
	in := [][]byte{[]byte("1"), []byte("2")}

	rt := <-w.Submit(context.Background(), &Request{RequestID: "run", Inputs: in, Limit: limit})
	if rt.Error != nil || len(rt.Outcomes) != 2 || rt.Verdicts != nil {
		t.Fatalf("run response = %v", rt)
	}

	rt = <-w.Submit(context.Background(), &Request{RequestID: "judge", Inputs: in, Answers: [][]byte{[]byte("1"), []byte("3")}, Limit: limit})
	if rt.Error != nil || len(rt.Verdicts) != 2 || rt.Verdicts[0] != types.VerdictPass || rt.Verdicts[1] != types.VerdictFail {
		t.Fatalf("judge response = %v", rt)
	}

	rt = <-w.Submit(context.Background(), &Request{RequestID: "mismatch", Inputs: in, Answers: [][]byte{}, Limit: limit})
	if !errors.Is(rt.Error, language.ErrLengthMismatch) {
		t.Fatalf("mismatch response = %v", rt)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 3 {
		t.Errorf("observed %v", observed)
	}
}

func TestWorkerParallel(t *testing.T) {
	const n = 4
	w, _ := newTestWorker(t, n, 100*time.Millisecond, nil)
	defer w.Shutdown()

	start := time.Now()
	chs := make([]<-chan Response, 0, n)
	for range n {
		chs = append(chs, w.Submit(context.Background(), &Request{Inputs: [][]byte{nil}, Limit: types.Limitation{Time: 1, Memory: 1}}))
	}
	for _, ch := range chs {
		if rt := <-ch; rt.Error != nil {
			t.Fatal(rt.Error)
		}
	}
	if d := time.Since(start); d > 350*time.Millisecond {
		t.Errorf("%d requests on %d strategies took %v", n, n, d)
	}
}

func TestWorkerCanceled(t *testing.T) {
	w, _ := newTestWorker(t, 1, 0, nil)
	defer w.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt := <-w.Submit(ctx, &Request{RequestID: "c"})
	if !errors.Is(rt.Error, context.Canceled) || rt.RequestID != "c" {
		t.Fatalf("response = %v", rt)
	}
}

func TestWorkerShutdown(t *testing.T) {
	w, _ := newTestWorker(t, 1, 0, nil)
	w.Shutdown()
	rt := <-w.Submit(context.Background(), &Request{RequestID: "late"})
	if !errors.Is(rt.Error, ErrShutdown) {
		t.Fatalf("response = %v", rt)
	}
}

func TestWorkerShutdownConcurrentSubmit(t *testing.T) {
	for round := 0; round < 20; round++ {
		w, _ := newTestWorker(t, 2, time.Millisecond, nil)

		var wg sync.WaitGroup
		stuck := make(chan string, 64)
		for i := range 64 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; ; j++ {
					select {
					case rt := <-w.Submit(context.Background(), &Request{RequestID: "r"}):
						if errors.Is(rt.Error, ErrShutdown) {
							return
						}
					case <-time.After(5 * time.Second):
						stuck <- requestName(i, j)
						return
					}
				}
			}()
		}
		time.Sleep(time.Duration(round%5) * time.Millisecond)
		w.Shutdown()
		wg.Wait()
		close(stuck)
		for id := range stuck {
			t.Fatalf("round %d: request %s never answered", round, id)
		}
	}
}

func requestName(i, j int) string {
	return strconv.Itoa(i) + "/" + strconv.Itoa(j)
}
