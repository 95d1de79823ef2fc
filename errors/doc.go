/*
Package errors implements the error handling used throughout mesh.

Every error returned by mesh code wraps one of the root errors declared in this
package. A root error carries a unique code, so clients can tell apart a
rejected authorization from a failed execution without parsing messages.

If you want to register a custom error use Register(code, description). To
reuse a root error use ErrXyz.New or ErrXyz.Newf, or wrap an existing error
with Wrap/Wrapf to add context.

Stack traces are attached at the innermost wrap only. Use fmt to inspect them:

	%s is just the error message
	%+v is the full stack trace
	%v appends a compressed [filename:line] where the error was created
*/
package errors
