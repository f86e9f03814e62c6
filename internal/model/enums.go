package model

// Job status
type JobStatus string

const (
	JobStatusStarted      JobStatus = "STARTED"
	JobStatusTranscribing JobStatus = "TRANSCRIBING"
	JobStatusTranscribed  JobStatus = "TRANSCRIBED"
	JobStatusTranslating  JobStatus = "TRANSLATING"
	JobStatusSynthesizing JobStatus = "SYNTHESIZING"
	JobStatusSucceeded    JobStatus = "SUCCEEDED"
	JobStatusFailed       JobStatus = "FAILED"
)

// statusRank orders statuses along the pipeline. A transition is legal only
// when it moves strictly forward; FAILED is reachable from any non-terminal
// status.
var statusRank = map[JobStatus]int{
	JobStatusStarted:      0,
	JobStatusTranscribing: 1,
	JobStatusTranscribed:  2,
	JobStatusTranslating:  3,
	JobStatusSynthesizing: 4,
	JobStatusSucceeded:    5,
	JobStatusFailed:       5,
}

// IsValid reports whether s is a known job status.
func (s JobStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further transitions are accepted from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// CanTransition reports whether moving from one status to the next respects
// the monotonic forward rule. Terminal states accept nothing; FAILED is
// reachable from any non-terminal state.
func CanTransition(from, to JobStatus) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == JobStatusFailed {
		return true
	}
	return toRank > fromRank
}

// Target language codes (intersection of what the translation and speech
// synthesis capabilities both support).
type Language string

const (
	LanguageEN Language = "en"
	LanguageES Language = "es"
	LanguageFR Language = "fr"
	LanguageDE Language = "de"
	LanguageIT Language = "it"
	LanguagePT Language = "pt"
	LanguageJA Language = "ja"
	LanguageKO Language = "ko"
	LanguageZH Language = "zh"
	LanguageAR Language = "ar"
	LanguageHI Language = "hi"
	LanguageTR Language = "tr"
)

var SupportedLanguages = []Language{
	LanguageEN, LanguageES, LanguageFR, LanguageDE, LanguageIT, LanguagePT,
	LanguageJA, LanguageKO, LanguageZH, LanguageAR, LanguageHI, LanguageTR,
}

// IsSupportedLanguage reports whether code is in the supported target set.
func IsSupportedLanguage(code string) bool {
	for _, l := range SupportedLanguages {
		if string(l) == code {
			return true
		}
	}
	return false
}

// Failure kinds recorded in a failed job's ErrorInfo.
type ErrorKind string

const (
	ErrorKindValidation        ErrorKind = "VALIDATION"
	ErrorKindUpstreamTransient ErrorKind = "UPSTREAM_TRANSIENT"
	ErrorKindUpstreamTerminal  ErrorKind = "UPSTREAM_TERMINAL"
	ErrorKindStorageConflict   ErrorKind = "STORAGE_CONFLICT"
	ErrorKindTimeout           ErrorKind = "TIMEOUT"
)
