package todo

import (
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestAddReturnsStableIndexes(t *testing.T) {
	tr := NewTracker()
	if idx := tr.Add("read the contract"); idx != 0 {
		t.Errorf("first index = %d, want 0", idx)
	}
	if idx := tr.Add("summarize findings"); idx != 1 {
		t.Errorf("second index = %d, want 1", idx)
	}

	items := tr.List()
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Task != "read the contract" || items[0].Status != StatusPending {
		t.Errorf("items[0] = %+v", items[0])
	}
}

func TestSetStatusOutOfRangeIsNoop(t *testing.T) {
	tr := NewTracker()
	tr.Add("task")

	tr.SetStatus(-1, StatusCompleted)
	tr.SetStatus(5, StatusCompleted)

	if got := tr.List()[0].Status; got != StatusPending {
		t.Errorf("status = %q, want pending", got)
	}
}

func TestRenderEmpty(t *testing.T) {
	if got := NewTracker().Render(); got != EmptyRender {
		t.Errorf("Render() = %q, want %q", got, EmptyRender)
	}
}

func TestRenderNumbersGlyphsAndStatus(t *testing.T) {
	tr := NewTracker()
	tr.Add("read the contract")
	tr.Add("summarize findings")
	tr.SetStatus(0, StatusCompleted)

	got := tr.Render()
	for _, want := range []string{
		"1. [✓] read the contract (completed)",
		"2. [○] summarize findings (pending)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() missing %q:\n%s", want, got)
		}
	}
}

func TestListReturnsSnapshot(t *testing.T) {
	tr := NewTracker()
	tr.Add("task")

	snap := tr.List()
	snap[0].Status = StatusCompleted

	if tr.List()[0].Status != StatusPending {
		t.Error("mutating the snapshot changed the tracker")
	}
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	tr := NewTracker()
	var calls [][]Item
	tr.OnChange(func(items []Item) {
		calls = append(calls, items)
	})

	tr.Add("task")
	tr.SetStatus(0, StatusCompleted)

	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	want := []Item{{Task: "task", Status: StatusCompleted}}
	if !reflect.DeepEqual(calls[1], want) {
		t.Errorf("last snapshot = %+v, want %+v", calls[1], want)
	}
}

func TestConcurrentAdds(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Add("task")
		}()
	}
	wg.Wait()

	if got := len(tr.List()); got != 50 {
		t.Errorf("len = %d, want 50", got)
	}
}
