// Package harness runs constraint scenarios end to end.
//
// A scenario is a YAML file naming a CUE dataset model, a data source and a
// constraint expression. Run compiles the constraint, generates the chunked
// response through the same generator and chunk writer the CLI uses, and
// records a transcript of everything written: the DMR, every sequence count
// and every value, grouped by top-level variable. Expectations and
// assertions are then checked against the compiled view and the transcript.
//
// Data sources:
//
//   - fixture: values from a YAML fixture (see package memdata)
//   - synth: seeded synthetic values
//   - store: the fixture (or synthetic data when there is none) imported
//     into a fresh in-memory SQLite store and read back from it
//
// RunWithGolden additionally compares the transcript with a golden file in
// testdata/golden. Regenerate golden files with:
//
//	go test ./internal/harness -update
package harness
