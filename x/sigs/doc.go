/*
Package sigs provides basic authentication
middleware to verify the signatures on a request,
and maintain nonces for replay protection.
*/
package sigs
