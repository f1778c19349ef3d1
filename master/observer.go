package master

import swarm "github.com/coreswarm/swarm"

// Observer receives swarm-wide notifications (spec §4.4a, §9):
// per-worker state transitions, idling (no next hop for this worker
// right now), worker failures, and changes to the swarm's shared target
// state or active restriction sets. Every method runs inline on the
// Manager's eventloop.Loop and must return promptly.
type Observer interface {
	OnStateTransition(from, to swarm.State)
	// OnIdle is called when giveWorkTo finds no legal next hop for a
	// worker right now (already at its target, or no unrestricted path
	// to it), mirroring the original's observer->on_idle(wid, w.state).
	OnIdle(id WorkerID, state swarm.State)
	OnWorkerFailed(id WorkerID, err error)
	OnTargetChanged(target swarm.State)
	OnRestrictionsChanged(active []swarm.RestrictionSet)
}
