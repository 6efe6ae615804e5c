package report

// Event is one element of the ordered report generation stream: progress
// stages, streamed text tokens, then exactly one Done or Error.
type Event interface {
	isEvent()
}

// StageEvent announces a progress stage before generation begins.
type StageEvent struct {
	Stage    string
	Progress float64 // 0..100
}

// TokenEvent carries one streamed fragment of the report body.
type TokenEvent struct {
	Token string
}

// DoneEvent terminates a successful stream.
type DoneEvent struct {
	FullText    string
	Sources     int // distinct chunks that informed the report
	GoldSources int // how many of those were gold tier
}

// ErrorEvent terminates a failed stream. No partial report follows it.
type ErrorEvent struct {
	Err error
}

func (StageEvent) isEvent() {}
func (TokenEvent) isEvent() {}
func (DoneEvent) isEvent()  {}
func (ErrorEvent) isEvent() {}
