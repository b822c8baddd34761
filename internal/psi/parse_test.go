package psi

import "testing"

func TestParsePressureFile(t *testing.T) {
	content := "some avg10=0.00 avg60=0.00 avg300=0.00 total=123456\n" +
		"full avg10=0.00 avg60=0.00 avg300=0.00 total=654321\n"

	snap := ParsePressureFile(content)
	if snap.SomeTotal != 123456 {
		t.Errorf("SomeTotal = %d, want 123456", snap.SomeTotal)
	}
	if snap.FullTotal != 654321 {
		t.Errorf("FullTotal = %d, want 654321", snap.FullTotal)
	}
}

func TestParsePressureFileIgnoresMalformedLines(t *testing.T) {
	snap := ParsePressureFile("garbage\nsome total=notanumber\n")
	if snap.SomeTotal != 0 || snap.FullTotal != 0 {
		t.Errorf("expected zero snapshot for malformed input, got %+v", snap)
	}
}
