// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - AMD64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Warp Synchronization Layer
// Component: x86-64 Spin-Wait Optimization
//
// Description:
//   Platform-specific implementation for x86-64 processors using the PAUSE instruction.
//   Improves power efficiency and performance in hyperthreaded environments during
//   busy-wait loops by providing hints to the CPU pipeline.
//
// Hardware Benefits:
//   - Reduced power consumption during spin loops
//   - Better resource sharing on SMT/hyperthreaded cores
//   - Minimized memory ordering speculation
//   - Lower thermal output in high-frequency polling
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build amd64 && !noasm && !nocgo

package spin

/*
#ifdef __x86_64__
static inline void cpu_pause() {
    __asm__ __volatile__("pause" ::: "memory");
}
#else
#error "This file requires x86-64 architecture"
#endif
*/
import "C"

// Relax emits the x86-64 PAUSE instruction for efficient spin-wait loops.
// Every blocking primitive in this layer funnels its stall through here.
//
//go:norace
//go:nocheckptr
//go:inline
//go:registerparams
func Relax() {
	C.cpu_pause()
}
