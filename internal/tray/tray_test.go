package tray

import "testing"

func TestTray_ToggleWithoutMenu(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("tray should start enabled")
	}

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("tray should be enabled after two toggles")
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()
	restarts, opens := 0, 0
	tr.OnRestart(func() { restarts++ })
	tr.OnOpen(func() { opens++ })

	tr.call(tr.restartCallback())
	tr.call(tr.openCallback())
	tr.call(tr.openCallback())

	if restarts != 1 || opens != 2 {
		t.Errorf("restarts = %d, opens = %d", restarts, opens)
	}

	// Unset callbacks are ignored.
	New().call(New().restartCallback())
}

func TestTray_SetLevel(t *testing.T) {
	tr := New()
	tr.SetLevel(3)
	if tr.Level() != 3 {
		t.Errorf("level = %d, want 3", tr.Level())
	}
	if got := levelTitle(4); got != "Level: 05 Max Engagement" {
		t.Errorf("levelTitle(4) = %q", got)
	}
}
