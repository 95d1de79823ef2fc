/*
Package mesh defines the interfaces and primitives shared by all mesh
packages: addresses, storage, context helpers and application options.

mesh is a quorum-gated authorization engine. A group of members controls a
registry (x/multisig), proposes transactions made of ordered instructions
(x/transaction), approves them until a threshold is met and finally has them
executed (x/execution) by an execution runtime (runtime) that signs with
identities derived from public seeds (derivation). No private key of a vault
ever exists.

We pass context through context.Context between the service, the engine and
the programs. There should exist two functions for every XYZ of type T that
we want to support in Context:

  WithXYZ(Context, T) Context
  GetXYZ(Context) (val T, ok bool)

WithXYZ may panic if the value was previously set to avoid lower-level
modules overwriting the value (eg. chain id).
*/
package mesh
