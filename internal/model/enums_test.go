package model

import "testing"

func TestCanTransition_ForwardOnly(t *testing.T) {
	path := []JobStatus{
		JobStatusStarted,
		JobStatusTranscribing,
		JobStatusTranscribed,
		JobStatusTranslating,
		JobStatusSynthesizing,
		JobStatusSucceeded,
	}

	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Errorf("expected %s -> %s to be legal", path[i], path[i+1])
		}
	}

	// No regression to an earlier state.
	for i := 1; i < len(path); i++ {
		for j := 0; j <= i; j++ {
			if path[i] == path[j] && i == j {
				continue
			}
			if CanTransition(path[i], path[j]) {
				t.Errorf("expected %s -> %s to be illegal", path[i], path[j])
			}
		}
	}
}

func TestCanTransition_SkippingForwardIsLegal(t *testing.T) {
	// A synchronous inference result lets the pipeline skip the poll stage.
	if !CanTransition(JobStatusTranscribing, JobStatusTranscribed) {
		t.Error("expected TRANSCRIBING -> TRANSCRIBED to be legal")
	}
	if !CanTransition(JobStatusStarted, JobStatusTranscribed) {
		t.Error("expected forward skip to be legal")
	}
}

func TestCanTransition_FailedFromAnyNonTerminal(t *testing.T) {
	for _, from := range []JobStatus{
		JobStatusStarted, JobStatusTranscribing, JobStatusTranscribed,
		JobStatusTranslating, JobStatusSynthesizing,
	} {
		if !CanTransition(from, JobStatusFailed) {
			t.Errorf("expected %s -> FAILED to be legal", from)
		}
	}
}

func TestCanTransition_TerminalAcceptsNothing(t *testing.T) {
	for _, from := range []JobStatus{JobStatusSucceeded, JobStatusFailed} {
		for _, to := range []JobStatus{
			JobStatusStarted, JobStatusTranscribing, JobStatusTranscribed,
			JobStatusTranslating, JobStatusSynthesizing, JobStatusSucceeded,
			JobStatusFailed,
		} {
			if CanTransition(from, to) {
				t.Errorf("expected terminal %s -> %s to be illegal", from, to)
			}
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	if CanTransition(JobStatus("BOGUS"), JobStatusFailed) {
		t.Error("unknown source status must not transition")
	}
	if CanTransition(JobStatusStarted, JobStatus("BOGUS")) {
		t.Error("unknown target status must not transition")
	}
}

func TestIsSupportedLanguage(t *testing.T) {
	if !IsSupportedLanguage("es") {
		t.Error("expected es to be supported")
	}
	if IsSupportedLanguage("xx") {
		t.Error("expected xx to be unsupported")
	}
	if IsSupportedLanguage("") {
		t.Error("expected empty language to be unsupported")
	}
}
