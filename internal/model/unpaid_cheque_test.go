package model

import "testing"

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from string
		to   string
		want bool
	}{
		{StageReceived, StageParsed, true},
		{StageParsed, StageValidated, true},
		{StageValidated, StageRecordQueried, true},
		{StageRecordQueried, StageUnpaid, true},
		{StageUnpaid, StageEvaluated, true},
		{StageEvaluated, StagePersisted, true},
		{StageReceived, StageValidated, false},
		{StageValidated, StageUnpaid, false},
		{StagePersisted, StageFailed, false},
		{StageFailed, StageParsed, false},
		{"UNKNOWN", StageParsed, false},
	}

	for _, c := range cases {
		if got := CanTransitionTo(c.from, c.to); got != c.want {
			t.Errorf("CanTransitionTo(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanTransitionTo_FailedReachableFromNonTerminal(t *testing.T) {
	for _, from := range []string{
		StageReceived, StageParsed, StageValidated,
		StageRecordQueried, StageUnpaid, StageEvaluated,
	} {
		if !CanTransitionTo(from, StageFailed) {
			t.Errorf("expected %s -> FAILED to be allowed", from)
		}
	}
}
