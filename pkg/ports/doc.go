/*
Package ports defines the interfaces (ports) that connect the ternlab core to
its infrastructure adapters.

The lab only depends on these interfaces; concrete adapters live under
pkg/adapters (memory, file, redis, sqlite). RunSnapshotStoreContract is the
shared test suite every SnapshotStore adapter must pass.
*/
package ports
