/*
Package runtime defines the boundary between the engine and the system that
runs sub-operations.

The engine hands an ordered batch of operations, each with the signers it
resolved, to a Runtime and only learns whether the batch passed or failed.
Router is an in-process Runtime that dispatches every operation to the
Program registered for its target. Programs read the signers of the current
operation with Authenticator.
*/
package runtime
