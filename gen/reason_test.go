package gen

import (
	"errors"
	"testing"
)

func TestTerminateReasonKinds(t *testing.T) {
	if !ReasonNormal().IsNormal() {
		t.Fatal("ReasonNormal should be normal")
	}
	if !ReasonShutdown().IsShutdown() {
		t.Fatal("ReasonShutdown should be shutdown")
	}

	boom := errors.New("boom")
	r := ReasonError(boom)
	if !r.IsError() {
		t.Fatal("ReasonError should be error")
	}
	if err, ok := r.Err(); !ok || err != boom {
		t.Fatalf("Err() = %v, %v; want %v, true", err, ok, boom)
	}

	// ReasonError(nil) collapses to normal so a handler that returns a nil
	// error never accidentally reports a crash.
	if !ReasonError(nil).IsNormal() {
		t.Fatal("ReasonError(nil) should collapse to normal")
	}
}

func TestDownReasonFromTerminate(t *testing.T) {
	cases := []struct {
		in   TerminateReason
		want func(DownReason) bool
	}{
		{ReasonNormal(), DownReason.IsNormal},
		{ReasonShutdown(), DownReason.IsShutdown},
		{ReasonError(errors.New("x")), DownReason.IsError},
	}
	for _, c := range cases {
		got := DownReasonFromTerminate(c.in)
		if !c.want(got) {
			t.Errorf("DownReasonFromTerminate(%v) = %v, wrong kind", c.in, got)
		}
	}

	if !DownNoproc().IsNoproc() {
		t.Fatal("DownNoproc should be noproc")
	}
}
