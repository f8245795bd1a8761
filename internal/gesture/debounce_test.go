package gesture

import "testing"

func feed(d *Debouncer, raw bool, n int) bool {
	var out bool
	for i := 0; i < n; i++ {
		out = d.Apply(raw)
	}
	return out
}

func TestDebouncer_ArmsAfterOnFrames(t *testing.T) {
	d := NewDebouncer(DefaultDebounceConfig())

	for i := 1; i <= 3; i++ {
		if d.Apply(true) {
			t.Fatalf("filtered flipped on after only %d frames", i)
		}
	}
	if !d.Apply(true) {
		t.Fatal("expected filtered to be on after 4 consecutive frames")
	}
}

func TestDebouncer_DisarmsAfterOffFrames(t *testing.T) {
	d := NewDebouncer(DefaultDebounceConfig())
	feed(d, true, 4)

	for i := 1; i <= 6; i++ {
		if !d.Apply(false) {
			t.Fatalf("filtered flipped off after only %d frames", i)
		}
	}
	if d.Apply(false) {
		t.Fatal("expected filtered to be off after 7 consecutive false frames")
	}
}

func TestDebouncer_SingleDropoutKeepsFlag(t *testing.T) {
	d := NewDebouncer(DefaultDebounceConfig())
	feed(d, true, 10)

	if !d.Apply(false) {
		t.Fatal("single dropout must not flip the flag")
	}
	if !d.Apply(true) {
		t.Fatal("flag should stay on when the run resumes")
	}
	if _, off := d.Counters(); off != 0 {
		t.Errorf("off counter = %d, want 0 after a true frame", off)
	}
}

func TestDebouncer_InterruptedRunDoesNotArm(t *testing.T) {
	d := NewDebouncer(DefaultDebounceConfig())

	pattern := []bool{true, true, true, false, true, true, true, false}
	for i, raw := range pattern {
		if d.Apply(raw) {
			t.Fatalf("frame %d: flag armed without 4 consecutive trues", i)
		}
	}
}

func TestDebouncer_Properties(t *testing.T) {
	// Walk every 12-frame boolean sequence and check the hysteresis rules.
	const frames = 12
	for mask := 0; mask < 1<<frames; mask++ {
		d := NewDebouncer(DefaultDebounceConfig())
		prev := false
		onRun, offRun := 0, 0

		for i := 0; i < frames; i++ {
			raw := mask&(1<<i) != 0
			if raw {
				onRun++
				offRun = 0
			} else {
				offRun++
				onRun = 0
			}

			got := d.Apply(raw)
			if got && !prev && onRun < 4 {
				t.Fatalf("mask %b frame %d: armed after %d trues", mask, i, onRun)
			}
			if !got && prev && offRun < 7 {
				t.Fatalf("mask %b frame %d: disarmed after %d falses", mask, i, offRun)
			}
			prev = got
		}
	}
}

func TestDebouncer_ConfigFallback(t *testing.T) {
	d := NewDebouncer(DebounceConfig{})
	if feed(d, true, 3) {
		t.Error("zero config should fall back to 4 on-frames")
	}
	if !d.Apply(true) {
		t.Error("expected default on-frames to arm on the 4th frame")
	}

	d.Reset()
	if d.Filtered() {
		t.Error("Reset should clear the filtered flag")
	}
	if on, off := d.Counters(); on != 0 || off != 0 {
		t.Errorf("Reset left counters at %d/%d", on, off)
	}
}
