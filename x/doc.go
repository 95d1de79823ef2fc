/*
Package x contains the engine modules and the abstractions they share.

Modules authenticate callers through an Authenticator, so the same code
serves requests signed by members and operations signed by the engine for
derived authorities.
*/
package x
