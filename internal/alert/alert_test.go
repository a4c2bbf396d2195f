package alert

import "testing"

func TestComputeIncidentsWin(t *testing.T) {
	// Active incidents dominate everything else.
	if got := Compute(1, 5, 3); got != Red {
		t.Errorf("expected Red with active incidents, got %s", got)
	}
	if got := Compute(2, 0, 0); got != Red {
		t.Errorf("expected Red with incidents and nothing else, got %s", got)
	}
}

func TestComputeStale(t *testing.T) {
	if got := Compute(0, 1, 0); got != Amber {
		t.Errorf("expected Amber with stale work, got %s", got)
	}
	if got := Compute(0, 3, 10); got != Amber {
		t.Errorf("expected Amber regardless of pending count, got %s", got)
	}
}

func TestComputeClear(t *testing.T) {
	if got := Compute(0, 0, 0); got != Green {
		t.Errorf("expected Green with empty queues, got %s", got)
	}
}

func TestComputePendingOnly(t *testing.T) {
	if got := Compute(0, 0, 4); got != Neutral {
		t.Errorf("expected Neutral with only pending reviews, got %s", got)
	}
}

func TestCombineKeepsMoreSevere(t *testing.T) {
	cases := []struct {
		a, b, want Level
	}{
		{Neutral, Neutral, Neutral},
		{Neutral, Green, Green},
		{Green, Amber, Amber},
		{Amber, Red, Red},
		{Red, Green, Red},
		{Red, Red, Red},
	}
	for _, c := range cases {
		if got := Combine(c.a, c.b); got != c.want {
			t.Errorf("Combine(%s, %s) = %s, want %s", c.a, c.b, got, c.want)
		}
		// Combine is symmetric.
		if got := Combine(c.b, c.a); got != c.want {
			t.Errorf("Combine(%s, %s) = %s, want %s", c.b, c.a, got, c.want)
		}
	}
}

func TestOrdering(t *testing.T) {
	if !(Neutral < Green && Green < Amber && Amber < Red) {
		t.Error("expected Neutral < Green < Amber < Red")
	}
}

func TestIsCritical(t *testing.T) {
	if !Red.IsCritical() {
		t.Error("expected Red to be critical")
	}
	for _, l := range []Level{Neutral, Green, Amber} {
		if l.IsCritical() {
			t.Errorf("expected %s not to be critical", l)
		}
	}
}

func TestStringAndColor(t *testing.T) {
	if Amber.String() != "Attention Needed" {
		t.Errorf("unexpected Amber string: %s", Amber)
	}
	if Red.ColorHex() != "#EF4444" {
		t.Errorf("unexpected Red color: %s", Red.ColorHex())
	}
	if Neutral.ColorHex() != Level(99).ColorHex() {
		t.Error("expected unknown levels to share the neutral color")
	}
}
