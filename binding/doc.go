// Package binding describes the typed side of the codec: typed paths made
// of steps bound to generated Go types, and the registry of those types.
//
// # Generated Types
//
// A generated data class is a Go struct type reporting the schema node it
// mirrors through [DataObject]. Its leaves and children are read through
// exported zero argument methods named after the schema identifiers:
//
//	type Item struct{ ID *uint32; Zone *string }
//
//	func (*Item) QName() schema.QName { return schema.Q("ex", "item") }
//	func (x *Item) GetId() *uint32    { return x.ID }
//	func (x *Item) GetZone() *string  { return x.Zone }
//
// Boolean and empty leaves use an Is prefix instead of Get. A nil pointer,
// slice or interface result means the leaf is absent.
//
// # Registry
//
// [Registry] records data classes with their list key classes and key
// constructors, identity marker types and union types. The accessor table
// of each registered type is built once, when it is registered.
package binding
