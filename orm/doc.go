/*
Package orm provides an easy to use db wrapper

Models are persisted under a bucket prefix with an amino encoding. The
primary key of every model is chosen by the caller, most often a derived
address, so no secondary indexes are needed.

Sequence maintains monotonic counters stored next to the models.
*/
package orm
