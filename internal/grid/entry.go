package grid

// Entry is the per-cell payload, a palette id. The cache and builder treat
// it as opaque; palette semantics live with the generator.
type Entry uint16

// EntryUnknown marks a cell that has not been generated yet.
const EntryUnknown Entry = 0
