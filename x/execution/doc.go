/*
Package execution runs approved transactions.

The engine loads the instructions of a transaction in sequence order, signs
each of them with the authorities derived for it and hands the batch to a
runtime. The batch is atomic: either every instruction succeeds and the
transaction is marked executed, or nothing is written and the transaction
stays ready to be executed again.
*/
package execution
