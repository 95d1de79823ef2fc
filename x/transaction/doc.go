/*
Package transaction implements the life cycle of a proposed batch and the
ledger of its instructions.

A transaction is created by a member of a registry and receives the next
transaction index of that registry. While in Draft its creator appends
instructions, each stored under an address derived from the transaction and
the instruction sequence number. Activation freezes the batch. Members then
approve or reject it until the threshold of the registry is reached:

	Draft -> Active -> ExecuteReady -> Executed
	           |
	           +-> Rejected
	Draft | Active -> Cancelled

Execution is implemented by the execution package.
*/
package transaction
