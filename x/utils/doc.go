/*
Package utils contains decorators that wrap a unit of work against the
store: isolating its writes, logging its outcome and recovering panics.
*/
package utils
