package domain

type Priority uint8

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Payload is a composed notification. It is never persisted; composing the
// same StatusChange always yields an equal Payload.
type Payload struct {
	Title    string
	Body     string
	Data     map[string]string
	Priority Priority
}
