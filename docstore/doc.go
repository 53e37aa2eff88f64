// Package docstore emulates a hierarchical document database in memory.
//
// Documents live in collections addressed by paths of the form
// collection/id[/subcollection/id]*. A sub-collection is scoped to the
// document it hangs from and is independent of sub-collections with the
// same name under sibling documents.
//
// Deleting a document does not delete its sub-collections. A lobby's chat
// history, for example, survives the lobby document being removed and
// remains readable through the same path. Callers that want cascading
// deletion must delete the sub-collection documents themselves.
//
// Listeners registered with Subscribe are invoked synchronously: once on
// registration and once after every committed mutation that affects them,
// in registration order. A listener that returns an error or panics is
// logged and skipped; it never affects the writer or other listeners.
//
// Field values written through sentinels such as ServerTimestamp or
// ArrayUnion are stored as opaque tags and are not interpreted.
package docstore
