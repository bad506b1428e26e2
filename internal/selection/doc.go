// Package selection defines the field-tree shape that drives cache
// reads and writes.
//
// A Shape is the argument-annotated field tree of a query: which fields
// were requested, with which arguments, and what each object-typed
// field selects in turn. The engine walks a Shape both to decompose a
// response into entity records (write) and to reconstruct a result from
// the store (read).
//
// Shapes are produced upstream. Anything directive- or fragment-shaped
// is resolved before a Shape reaches this package; arguments arrive
// either as literal values or as named references into the variables
// map supplied per operation.
//
// The package also defines a JSON wire format for shapes, used by the
// CLI and the conformance harness:
//
//	[
//	  {"field": "book",
//	   "args": {"id": {"$var": "bookID"}},
//	   "of": [{"field": "title"}, {"field": "author", "of": [{"field": "id"}]}]}
//	]
//
// Literal argument values are plain JSON; {"$var": "name"} marks a
// variable reference.
package selection
