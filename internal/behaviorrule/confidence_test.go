package behaviorrule

import "testing"

func TestRule_ConfidenceMatchesPriorMean(t *testing.T) {
	r := &Rule{Alpha: DefaultAlpha, Beta: DefaultBeta}
	got := r.Confidence()
	want := 2.0 / 7.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %v, want %v", got, want)
	}
}

func TestRule_ObserveAppliesPosteriorUpdateWithoutMutatingReceiver(t *testing.T) {
	r := &Rule{Alpha: DefaultAlpha, Beta: DefaultBeta, ObservationCount: 0}
	updated := r.Observe(3, 1)

	if updated.Alpha != DefaultAlpha+3 {
		t.Fatalf("alpha = %v, want %v", updated.Alpha, DefaultAlpha+3)
	}
	if updated.Beta != DefaultBeta+1 {
		t.Fatalf("beta = %v, want %v", updated.Beta, DefaultBeta+1)
	}
	if updated.ObservationCount != 4 {
		t.Fatalf("observationCount = %v, want 4", updated.ObservationCount)
	}
	if r.Alpha != DefaultAlpha || r.Beta != DefaultBeta {
		t.Fatal("Observe must not mutate the receiver")
	}
}

func TestRule_CredibleIntervalWidensWithFewerObservations(t *testing.T) {
	settled := &Rule{Alpha: 50, Beta: 50}
	fresh := &Rule{Alpha: DefaultAlpha, Beta: DefaultBeta}

	settledCI := settled.CredibleInterval(0.95)
	freshCI := fresh.CredibleInterval(0.95)

	settledWidth := settledCI.Upper - settledCI.Lower
	freshWidth := freshCI.Upper - freshCI.Lower

	if settledWidth >= freshWidth {
		t.Fatalf("expected a rule with more observations (alpha=beta=50) to have a narrower interval: settled=%v fresh=%v", settledWidth, freshWidth)
	}
}
