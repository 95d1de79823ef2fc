/*
Package bank keeps balances of addresses and implements the transfer
program. It is the reference target of instructions: vaults and custom
authorities hold balances that only the engine can move.
*/
package bank
