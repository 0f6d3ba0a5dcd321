package domain

type DeliveryErrorKind uint8

const (
	DeliveryErrorTokenInvalid DeliveryErrorKind = iota + 1
	DeliveryErrorTransient
)

func (k DeliveryErrorKind) String() string {
	switch k {
	case DeliveryErrorTokenInvalid:
		return "tokenInvalid"
	case DeliveryErrorTransient:
		return "transient"
	}
	return "unknown"
}

type DeliveryFailure struct {
	Token string
	Kind  DeliveryErrorKind
}

// DispatchResult aggregates the per-device outcomes of one dispatch call.
// A dispatch with failures is still a result, not an error: one failing
// device must never block delivery to, or reporting for, the others.
type DispatchResult struct {
	Attempted int
	Delivered int
	Failed    int
	Failures  []DeliveryFailure
}
