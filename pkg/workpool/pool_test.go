package workpool

import (
	"bufio"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPoolRunsEveryJob(t *testing.T) {
	p := New(4)
	defer p.Close()

	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			n.Add(1)
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	wg.Wait()
	if n.Load() != 100 {
		t.Fatalf("ran %d jobs, want 100", n.Load())
	}
}

func TestSubmitDoesNotBlockWhenWorkersBusy(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(func() { close(started); <-release }); err != nil {
		t.Fatal(err)
	}
	<-started
	// The only worker is parked; queued submissions must still return.
	for i := 0; i < 50; i++ {
		if err := p.Submit(func() {}); err != nil {
			t.Fatal(err)
		}
	}
	close(release)
	p.Close()
}

func TestCloseDrainsQueueAndRejectsNewJobs(t *testing.T) {
	p := New(2)
	var n atomic.Int64
	for i := 0; i < 20; i++ {
		p.Submit(func() { n.Add(1) })
	}
	p.Close()
	if n.Load() != 20 {
		t.Fatalf("ran %d queued jobs before close, want 20", n.Load())
	}
	if err := p.Submit(func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("submit after close: %v", err)
	}
	p.Close()
}

func TestWorkerBounds(t *testing.T) {
	if got := New(1000); got.Workers() != MaxWorkers {
		t.Fatalf("workers=%d want %d", got.Workers(), MaxWorkers)
	} else {
		got.Close()
	}
	p := New(0)
	defer p.Close()
	if p.Workers() < 1 {
		t.Fatalf("auto-detected %d workers", p.Workers())
	}
	if DefaultWorkers() < 1 {
		t.Fatal("DefaultWorkers must be positive")
	}
}

func TestPerfCoresHybrid(t *testing.T) {
	var b strings.Builder
	mhz := []string{"4800", "4800", "4800", "4800", "2400", "2400", "2400", "2400"}
	for i, m := range mhz {
		b.WriteString("processor\t: " + string(rune('0'+i)) + "\n")
		b.WriteString("physical id\t: 0\n")
		b.WriteString("core id\t\t: " + string(rune('0'+i)) + "\n")
		b.WriteString("cpu MHz\t\t: " + m + "\n\n")
	}
	if got := perfCores(bufio.NewScanner(strings.NewReader(b.String()))); got != 4 {
		t.Fatalf("perfCores=%d want 4", got)
	}
}

func TestPerfCoresHomogeneous(t *testing.T) {
	in := "processor: 0\ncore id: 0\ncpu MHz: 3000\nprocessor: 1\ncore id: 1\ncpu MHz: 3000\nprocessor: 2\ncore id: 2\ncpu MHz: 3000\n"
	if got := perfCores(bufio.NewScanner(strings.NewReader(in))); got != 0 {
		t.Fatalf("perfCores=%d want 0", got)
	}
}
