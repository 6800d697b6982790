package state

import "strings"

// Status is the locally mirrored state machine status. Exactly one holds at
// a time.
type Status string

const (
	StatusIdle                    Status = "idle"
	StatusRecording               Status = "recording"
	StatusProcessingTranscription Status = "processing-transcription"
	StatusProcessingFormatting    Status = "processing-gpt-formatting"
	StatusProcessingClipboard     Status = "processing-clipboard"
	StatusProcessingComplete      Status = "processing-complete"
	StatusSettingsOpen            Status = "settings-open"
	StatusProfileEditorNew        Status = "profile-editor-new"
	StatusProfileEditorEdit       Status = "profile-editor-edit"
	StatusErrorTranscription      Status = "error-transcription"
	StatusErrorFormatting         Status = "error-gpt-formatting"
	StatusErrorClipboard          Status = "error-clipboard"
	StatusErrorProfileValidation  Status = "error-profile-validation"
)

// IsError reports whether s is one of the error-* statuses.
func (s Status) IsError() bool {
	return strings.HasPrefix(string(s), "error-")
}

// IsProcessing reports whether s is one of the processing-* statuses.
func (s Status) IsProcessing() bool {
	return strings.HasPrefix(string(s), "processing-")
}

// classification is checked in order; the first needle contained in the
// normalised backend state wins. Composite names come before their parts.
var classification = []struct {
	needle string
	status Status
}{
	{"errortranscription", StatusErrorTranscription},
	{"errorgptformatting", StatusErrorFormatting},
	{"errorclipboard", StatusErrorClipboard},
	{"errorprofilevalidation", StatusErrorProfileValidation},
	{"processingtranscription", StatusProcessingTranscription},
	{"processinggptformatting", StatusProcessingFormatting},
	{"processingclipboard", StatusProcessingClipboard},
	{"processingcomplete", StatusProcessingComplete},
	{"settingsopen", StatusSettingsOpen},
	{"profileeditornew", StatusProfileEditorNew},
	{"profileeditoredit", StatusProfileEditorEdit},
	{"recording", StatusRecording},
	{"idle", StatusIdle},
}

// Classify maps an opaque backend state name to a Status. It is total:
// unrecognised input yields StatusIdle. Case and the separators '-', '_' and
// ' ' are ignored, so "ProcessingTranscription", "processing-transcription"
// and "ErrorClipboard { message: .. }" all classify.
func Classify(currentState string) Status {
	normalized := normalize(currentState)
	for _, c := range classification {
		if strings.Contains(normalized, c.needle) {
			return c.status
		}
	}
	return StatusIdle
}

var separators = strings.NewReplacer("-", "", "_", "", " ", "")

func normalize(s string) string {
	return separators.Replace(strings.ToLower(s))
}
