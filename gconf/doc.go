/*
Package gconf stores the runtime configuration of a registry instance in the
same KVStore as its state.

Every package owning configuration registers one amino
encoded message under "_c:<package>". The message is validated on every
write. InitConfig seeds it from the genesis options and Load reads it back
when a controller needs a limit, so an instance never depends on process
flags once initialized.
*/
package gconf
