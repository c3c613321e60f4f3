// Package shm provides the shared-memory building blocks of the module: the
// Region, a fixed-capacity memory mapping visible to every process holding
// its descriptor, and the Buffer, an exclusively-owned byte range handed out
// by receive operations.
//
// A Region performs raw, unsynchronized offset-addressed access. It has no
// internal locking; the channel layer coordinates writers and readers over
// its control socket. Global lifetime decisions (when no process anywhere
// still needs the mapping) also belong to the channel layer; a Region only
// counts handles within one process and unmaps its own view when the last
// local handle is released.
package shm
