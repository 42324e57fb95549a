package lightx

import "time"

// Observer receives workflow events, typically to feed metrics. Implementations
// must be safe for concurrent use and must not block.
type Observer interface {
	UploadFinished(size int, elapsed time.Duration, err error)
	Submitted(operation string, err error)
	PollStep(operation string, kind OutcomeKind)
	Finished(operation string, attempts int, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) UploadFinished(int, time.Duration, error)   {}
func (nopObserver) Submitted(string, error)                    {}
func (nopObserver) PollStep(string, OutcomeKind)               {}
func (nopObserver) Finished(string, int, time.Duration, error) {}

// NopObserver discards every event.
func NopObserver() Observer { return nopObserver{} }
