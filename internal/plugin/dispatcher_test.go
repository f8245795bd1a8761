package plugin

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ayusman/howlong/internal/burst"
	"github.com/ayusman/howlong/internal/engagement"
	"github.com/ayusman/howlong/internal/gesture"
)

func TestDispatcher_DeliversSubscribedEvents(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "events.log")
	pluginDir := writePlugin(t, tmpDir, Manifest{
		Name:       "recorder",
		Executable: "record.sh",
		Events:     []string{EventBurstCompleted, EventSessionFinished},
	})
	script := "#!/bin/sh\ncat >> " + logPath + "\necho >> " + logPath + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "record.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	d := NewDispatcher(manager, NewExecutor(5000))

	d.GestureEdge(gesture.Arms) // not subscribed
	d.BurstCompleted(burst.Completion{BurstID: "b1", Type: gesture.Arms}, 1)
	d.Navigated(engagement.Navigation{
		Reason:  engagement.ReasonWaiting,
		Summary: engagement.Summary{Level: 2, Label: engagement.LevelLabel(2), ActionType: gesture.Arms},
	})
	d.Close()

	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("plugin never ran: %v", err)
	}
	defer f.Close()

	var got []Request
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			t.Fatalf("bad request line %q: %v", scanner.Text(), err)
		}
		got = append(got, req)
	}

	if len(got) != 2 {
		t.Fatalf("requests = %d, want 2", len(got))
	}
	if got[0].Event != EventBurstCompleted || got[0].Gesture != "arms" || got[0].Level != 1 {
		t.Errorf("first request = %+v", got[0])
	}
	if got[1].Event != EventSessionFinished || got[1].Summary == nil || got[1].Summary.Label != "03 Med Engagement" {
		t.Errorf("second request = %+v", got[1])
	}
	if d.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", d.Dropped())
	}
}

func TestDispatcher_Abort(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	pluginDir := writePlugin(t, tmpDir, Manifest{Name: "slow", Executable: "slow.sh", Events: []string{EventGesture}})
	if err := os.WriteFile(filepath.Join(pluginDir, "slow.sh"), []byte("#!/bin/sh\nsleep 5\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	d := NewDispatcher(manager, NewExecutor(10000))
	for i := 0; i < 3; i++ {
		d.GestureEdge(gesture.Neck)
	}

	start := time.Now()
	d.Abort()
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Abort() took %v, want running plugins killed", elapsed)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	pluginDir := writePlugin(t, tmpDir, Manifest{Name: "slow", Executable: "slow.sh", Events: []string{EventGesture}})
	if err := os.WriteFile(filepath.Join(pluginDir, "slow.sh"), []byte("#!/bin/sh\nsleep 5\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	d := NewDispatcher(manager, NewExecutor(10000))
	defer d.Abort()

	// One event may already be taken by the worker.
	for i := 0; i < queueSize+5; i++ {
		d.GestureEdge(gesture.Legs)
	}
	if n := d.Dropped(); n < 4 {
		t.Errorf("dropped = %d, want at least 4", n)
	}
}
