// Package dmr provides the dataset model consumed by the constraint engine.
//
// A dataset is a tree of groups holding shared dimensions, enumerations and
// variables. Variables are atomic, structures or sequences; structures and
// sequences own ordered fields, and every variable has an ordered list of
// dimensions (empty for scalars).
//
// Fully qualified names:
//
//	/d17          dimension in the root group
//	/g/x          variable x in group g
//	/s.x          field x of structure s
//
// The model is read-only once built. Constraint views and generators hold
// plain pointers into it and never outlive it.
package dmr
