// relax_stub.go — Fallback no-op for Relax on unsupported targets
//
// This stub ensures builds on RISC-V, WASM, or CGO-disabled targets do not
// fail. It provides a safe no-op drop-in for platforms lacking a real
// PAUSE/YIELD instruction.
//
// Use-case:
//   - Safe to embed in spin loops
//   - Does nothing by design on unsupported hardware
//
//go:build (!amd64 && !arm64) || noasm || nocgo

package spin

//go:nosplit
//go:inline
func Relax() {}
