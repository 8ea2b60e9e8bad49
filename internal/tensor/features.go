package tensor

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// CPUInfo describes the host as seen by the tensor kernels.
type CPUInfo struct {
	GoOS       string          `json:"go_os"`
	GoArch     string          `json:"go_arch"`
	CPUs       int             `json:"cpus"`
	GOMAXPROCS int             `json:"gomaxprocs"`
	GemmPool   int             `json:"gemm_pool"`
	Features   map[string]bool `json:"features"`
}

// Features reports the instruction set extensions detected on this CPU.
func Features() CPUInfo {
	features := map[string]bool{}
	switch runtime.GOARCH {
	case "amd64", "386":
		features["SSE41"] = cpu.X86.HasSSE41
		features["AVX"] = cpu.X86.HasAVX
		features["AVX2"] = cpu.X86.HasAVX2
		features["FMA"] = cpu.X86.HasFMA
		features["AVX512F"] = cpu.X86.HasAVX512F
	case "arm64":
		features["ASIMD"] = cpu.ARM64.HasASIMD
		features["FPHP"] = cpu.ARM64.HasFPHP
		features["SVE"] = cpu.ARM64.HasSVE
	}
	return CPUInfo{
		GoOS:       runtime.GOOS,
		GoArch:     runtime.GOARCH,
		CPUs:       runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		GemmPool:   PoolSize(),
		Features:   features,
	}
}
