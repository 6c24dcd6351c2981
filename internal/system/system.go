package system

import (
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open-file limit: every worker holds
// frame and mask files open at the same time.
func InitResourceLimits(log zerolog.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warn().Err(err).Msg("could not read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warn().Err(err).Msg("could not raise open file limit")
	} else {
		log.Debug().Uint64("limit", uint64(rLimit.Cur)).Msg("open file limit raised")
	}
}

// Host is what the worker sizing needs to know about the machine.
type Host struct {
	LogicalCPUs    int
	AvailableBytes uint64
}

// Probe asks gopsutil for CPU and memory figures, falling back to
// runtime.NumCPU and "unknown" memory when the platform does not answer.
func Probe() Host {
	h := Host{LogicalCPUs: runtime.NumCPU()}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		h.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.AvailableBytes = vm.Available
	}
	return h
}

// DefaultWorkers picks a worker count: one per logical CPU, reduced until
// the frames in flight (perWorkerBytes each) fit in half the available
// memory. Never below one.
func DefaultWorkers(h Host, perWorkerBytes uint64) int {
	workers := h.LogicalCPUs
	if workers < 1 {
		workers = 1
	}
	if h.AvailableBytes > 0 && perWorkerBytes > 0 {
		budget := h.AvailableBytes / 2
		if maxByMem := int(budget / perWorkerBytes); maxByMem < workers {
			workers = maxByMem
		}
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// GetBestH264Encoder picks a hardware encoder when ffmpeg knows one.
// Order: VideoToolbox (macOS), NVENC, then libx264.
func GetBestH264Encoder() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}
