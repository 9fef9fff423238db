// Package baseimage implements the default capability, output and model
// providers every Rune can run against without a platform-specific host —
// the Go analog of the Rust toolchain's runicos/base crate. It supplies
// deterministic test doubles (seeded RAND, in-memory RAW, sine/modulo
// models) alongside the SERIAL/TENSOR outputs real `rune run` invocations
// use.
package baseimage
