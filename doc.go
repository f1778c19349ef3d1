// Package swarm implements the state-graph algebra at the heart of a
// distributed work-dispatch framework: a master coordinates many workers,
// each replicating the same finite-state machine, by driving per-worker
// transitions over a dedicated channel.
//
// This package owns only the graph: states, typed transitions, named
// restriction sets, and shortest-hop path search. The per-worker driver
// lives in swarm/worker, the master-side scheduler in swarm/master, and
// the wire format in swarm/wire. A Graph is built once and shared
// read-only between the master and every driver.
package swarm
