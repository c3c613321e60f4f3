// Package task runs registered functions in child OS processes, giving the
// host genuine multi-core parallelism at the cost of explicit marshalling
// across the address-space boundary.
//
// A Task owns a duplex link of two channels (one per direction, each with
// its own shared region) created eagerly at construction, before any
// process exists. Start is the single atomic spawn entry point: it
// registers the child-bound endpoints with the channel reference counter,
// re-executes the current binary, hands the endpoints over as inherited
// descriptors, and ships the function name and argument through the link.
// The child side is driven entirely by Main, which the host binary must
// call at the top of main (or TestMain) before doing anything else.
//
// Exactly one logical caller drives Start/Join/TryJoin per task; this is
// not a multi-waiter primitive. There is no cancellation: stopping a
// running child means signalling it out of band, which is what Close does.
package task
