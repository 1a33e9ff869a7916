package main

import (
	"encoding/binary"
	"testing"
	"time"
)

// genLevel produces one 100ms window of constant-amplitude samples whose RMS
// equals roughly the given level.
func genLevel(level float64) []byte {
	const samples = 1600 // 100ms at 16kHz
	amp := int16(level * 32768)
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(amp))
	}
	return buf
}

// testClock advances a fake time by step on every reading.
type testClock struct {
	t    time.Time
	step time.Duration
}

func (c *testClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestDetector(timeout time.Duration) (*silenceDetector, *testClock) {
	clock := &testClock{t: time.Unix(0, 0), step: 100 * time.Millisecond}
	d := newSilenceDetector(0.01, timeout)
	d.now = clock.now
	d.Attach()
	return d, clock
}

func drained(d *silenceDetector) bool {
	select {
	case <-d.C():
		return true
	default:
		return false
	}
}

func TestSilenceFiresAfterTimeout(t *testing.T) {
	d, _ := newTestDetector(15 * time.Second)

	quiet := genLevel(0.001)
	// 149 windows * 100ms < 15s: nothing yet
	for i := 0; i < 149; i++ {
		d.Process(quiet)
		if drained(d) {
			t.Fatalf("fired early at window %d", i)
		}
	}
	// a few more windows push past the timeout
	for i := 0; i < 5; i++ {
		d.Process(quiet)
	}
	if !drained(d) {
		t.Fatal("expected SilenceDetected after timeout")
	}
}

func TestSilenceFiresExactlyOnce(t *testing.T) {
	d, _ := newTestDetector(1 * time.Second)

	quiet := genLevel(0.001)
	fired := 0
	for i := 0; i < 300; i++ {
		d.Process(quiet)
		if drained(d) {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}
}

func TestActivityResetsWindow(t *testing.T) {
	d, _ := newTestDetector(2 * time.Second)

	quiet := genLevel(0.001)
	loud := genLevel(0.02)

	// 1.5s of silence, then a spike
	for i := 0; i < 15; i++ {
		d.Process(quiet)
	}
	d.Process(loud)
	// another 1.5s of silence: still inside the reset window
	for i := 0; i < 15; i++ {
		d.Process(quiet)
		if drained(d) {
			t.Fatalf("fired %dms after activity spike", (i+1)*100)
		}
	}
	// push past the timeout measured from the spike
	for i := 0; i < 10; i++ {
		d.Process(quiet)
	}
	if !drained(d) {
		t.Fatal("expected SilenceDetected after timeout from last activity")
	}
}

func TestNoFireDuringSpeech(t *testing.T) {
	d, _ := newTestDetector(1 * time.Second)

	loud := genLevel(0.05)
	for i := 0; i < 300; i++ {
		d.Process(loud)
		if drained(d) {
			t.Fatalf("fired during sustained speech at window %d", i)
		}
	}
}

func TestDetachedDetectorNeverFires(t *testing.T) {
	d, _ := newTestDetector(1 * time.Second)
	d.Detach()

	quiet := genLevel(0.001)
	for i := 0; i < 100; i++ {
		d.Process(quiet)
	}
	if drained(d) {
		t.Fatal("detached detector fired")
	}
}

func TestReattachReArms(t *testing.T) {
	d, _ := newTestDetector(1 * time.Second)

	quiet := genLevel(0.001)
	for i := 0; i < 50; i++ {
		d.Process(quiet)
	}
	if !drained(d) {
		t.Fatal("expected first fire")
	}

	d.Attach()
	for i := 0; i < 50; i++ {
		d.Process(quiet)
	}
	if !drained(d) {
		t.Fatal("expected fire after re-attach")
	}
}

func TestRMSLevel(t *testing.T) {
	if got := rmsLevel(nil); got != 0 {
		t.Errorf("rmsLevel(nil) = %v, want 0", got)
	}
	if got := rmsLevel(genLevel(0)); got != 0 {
		t.Errorf("rmsLevel(silence) = %v, want 0", got)
	}
	got := rmsLevel(genLevel(0.5))
	if got < 0.45 || got > 0.55 {
		t.Errorf("rmsLevel(0.5 square) = %v, want ~0.5", got)
	}
}
