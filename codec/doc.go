// Package codec translates between the typed and the generic form of data
// described by a schema model.
//
// A Factory lazily builds a tree of node contexts, one per schema node
// reached from its parent context, and binds each to the generated Go type
// found through the parent's accessors or the registry. The tree serves
// three translations:
//
//   - paths: Translate maps a binding.Path to an ir.Path, Resolve maps back
//     and reports generic paths that have no typed form;
//   - leaf values: ValueCodec and LeafCodecs convert between Go values and
//     generic values, covering derived types, identities, paths used as
//     values, unions, empty leaves and enumerations;
//   - list keys: KeyCodec builds key objects from entry predicates and
//     decomposes them again in schema key order.
//
// Writer uses the same tree to turn typed write events into ir stream
// events, and Explain reports the resolution of a generic path without
// needing generated types.
//
// Malformed input is reported as a *ContractError wrapping
// ErrContractViolation.
package codec
