package worker

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetry
	outcomeFatal
)

// Outcome is the tagged result of one job attempt. The consumer loop decides
// requeue-vs-drop from the tag, never from inspecting error types upstream.
type Outcome struct {
	kind outcomeKind
	err  error
}

func Success() Outcome { return Outcome{kind: outcomeSuccess} }
func Retry(err error) Outcome { return Outcome{kind: outcomeRetry, err: err} }
func Fatal(err error) Outcome { return Outcome{kind: outcomeFatal, err: err} }
