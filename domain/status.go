package domain

import "time"

// Status is a sample lifecycle status as stored by the tracking system.
// The set of known values is closed; anything else is treated as an
// unknown status and still produces a generic notification.
type Status string

const (
	StatusQuoting    Status = "En Cotización"
	StatusAccepted   Status = "Aceptada"
	StatusReceived   Status = "Recibida"
	StatusInAnalysis Status = "En análisis"
	StatusFinalized  Status = "Finalizada"
	StatusRejected   Status = "Rechazada"
)

var knownStatuses = map[Status]struct{}{
	StatusQuoting:    {},
	StatusAccepted:   {},
	StatusReceived:   {},
	StatusInAnalysis: {},
	StatusFinalized:  {},
	StatusRejected:   {},
}

func (s Status) Known() bool {
	_, ok := knownStatuses[s]
	return ok
}

// StatusChange describes one committed status transition of a sample.
type StatusChange struct {
	SampleId  string
	ClientId  string
	Previous  Status
	New       Status
	Note      string
	ChangedAt time.Time
}
