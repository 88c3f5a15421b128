package metrics

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// MemorySampler reports the resident set size of the current process in bytes.
type MemorySampler interface {
	RSS() (int64, error)
}

// ProcessSampler samples this process through gopsutil.
type ProcessSampler struct {
	proc *process.Process
}

// NewProcessSampler creates a sampler bound to the current process.
func NewProcessSampler() (*ProcessSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open current process: %w", err)
	}
	return &ProcessSampler{proc: proc}, nil
}

// RSS returns the current resident set size.
func (s *ProcessSampler) RSS() (int64, error) {
	info, err := s.proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to get process memory info: %w", err)
	}
	return int64(info.RSS), nil
}

// SystemMemory returns total and available system memory in bytes.
func SystemMemory() (total uint64, available uint64, err error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get memory stats: %w", err)
	}
	return v.Total, v.Available, nil
}

// Guard fails work that would start while the process is above its memory
// limit.
type Guard struct {
	sampler MemorySampler
	limit   int64
}

// NewGuard creates a guard with a limit in megabytes. A non-positive limit
// disables the guard.
func NewGuard(sampler MemorySampler, maxRSSMB int) *Guard {
	return &Guard{sampler: sampler, limit: int64(maxRSSMB) * 1024 * 1024}
}

// Check returns an OutOfMemory error when RSS exceeds the limit. Sampling
// errors are not treated as a breach.
func (g *Guard) Check() error {
	if g == nil || g.limit <= 0 || g.sampler == nil {
		return nil
	}
	rss, err := g.sampler.RSS()
	if err != nil {
		return nil
	}
	if rss > g.limit {
		return domain.OutOfMemoryError(
			fmt.Sprintf("resident memory %d MB exceeds limit %d MB", rss>>20, g.limit>>20), nil)
	}
	return nil
}
