package worker

// Observer receives driver-side lifecycle notifications (spec §4.3a).
// Implementations must return promptly: OnStateTransition runs inline on
// the eventloop.Loop, between decoding a message and sending the reply.
type Observer interface {
	// OnStateTransition fires whenever the driver moves from one state to
	// another, including the terminal Stop/Failed transitions.
	OnStateTransition(from, to State)
}
