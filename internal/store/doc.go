// Package store keeps dataset values in SQLite and serves them to the
// generator.
//
// Values are stored per dataset name and variable FQN:
//   - atomic_values: one row per flattened position of an atomic variable
//     (enclosing structure dimensions first, row-major)
//   - sequence_instances: the row count of every sequence instance
//   - sequence_rows: one row per scalar field of every sequence row
//
// The value column has no declared type; SQLite keeps integers, reals, text
// and blobs as written and they are converted back to the variable's base
// type on read.
//
// sequence_rows references sequence_instances, so rows cannot outlive the
// instance that counts them.
package store
