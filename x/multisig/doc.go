/*
Package multisig implements the registry of a group of members that
collectively controls derived vault authorities.

A registry is stored under an address derived from its create key. It holds
the sorted member set, the approval threshold and the counter used to index
transactions. Membership and threshold can only be changed by the external
authority of the registry. Unless another authority is configured at
creation, this is the vault authority with index 0, so changes require a
quorum approved transaction that runs the governance Program.
*/
package multisig
