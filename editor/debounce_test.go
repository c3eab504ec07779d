package editor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Pabi691/custom-clothology/core"
)

func TestDebouncer_CoalescesToLast(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var mu sync.Mutex
	var calls []int
	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		i := i
		d.Trigger(func() {
			mu.Lock()
			calls = append(calls, i)
			mu.Unlock()
			done <- struct{}{}
		})
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Debounced task never ran")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != 9 {
		t.Errorf("Expected only the last task to run, got %v", calls)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var ran atomic.Int32
	d.Trigger(func() { ran.Add(1) })

	if !d.Pending() {
		t.Fatal("Expected a pending task")
	}
	if !d.Flush() {
		t.Fatal("Flush() reported nothing pending")
	}
	if ran.Load() != 1 {
		t.Errorf("Flush ran task %d times, want 1", ran.Load())
	}
	if d.Flush() {
		t.Error("Second Flush() ran a task")
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var ran atomic.Int32
	d.Trigger(func() { ran.Add(1) })

	if !d.Stop() {
		t.Fatal("Stop() reported nothing pending")
	}
	time.Sleep(40 * time.Millisecond)
	if ran.Load() != 0 {
		t.Errorf("Stopped task ran %d times", ran.Load())
	}
	if d.Pending() {
		t.Error("Task still pending after Stop()")
	}
}

func TestDebouncer_TextCommit(t *testing.T) {
	s := NewStore()
	_, added := s.AddLayer(textData("H"))
	id := added.LayerFrame().ID

	var updates atomic.Int32
	s.OnChange(func(core.Snapshot) { updates.Add(1) })

	d := NewDebouncer(time.Hour)
	for _, text := range []string{"HE", "HEL", "HELL", "HELLO"} {
		text := text
		d.Trigger(func() {
			s.UpdateLayer(id, core.LayerPatch{Text: &text})
		})
	}
	d.Flush()

	if updates.Load() != 1 {
		t.Errorf("Expected exactly one update, got %d", updates.Load())
	}
	got := s.Snapshot().Front[0].(core.TextLayer).Text
	if got != "HELLO" {
		t.Errorf("Committed text mismatch: got %q, want %q", got, "HELLO")
	}
}
