/*
Package app exposes the engine as a service.

A Service owns the store. Requests are serialized and each of them runs in
a savepoint, so a rejected request leaves no trace. When the store can be
committed, every successful write request is committed.
*/
package app
