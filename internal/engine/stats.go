package engine

import (
	"fmt"
	"time"
)

// Stats is a snapshot of sampler counters.
type Stats struct {
	Examples int64
	Retries  int64
	Elapsed  time.Duration // time spent inside Batch
}

func (s *Sampler) Stats() Stats {
	return Stats{
		Examples: s.examples.Load(),
		Retries:  s.retries.Load(),
		Elapsed:  time.Duration(s.elapsed.Load()),
	}
}

// Rate is examples per second of batch time.
func (st Stats) Rate() float64 {
	if st.Elapsed <= 0 {
		return 0
	}
	return float64(st.Examples) / st.Elapsed.Seconds()
}

func (st Stats) Report() string {
	return fmt.Sprintf(
		"--- [SAMPLING REPORT] ---\n"+
			"Examples: %d\n"+
			"Skipped scenes: %d\n"+
			"Batch time: %.2fs\n"+
			"Examples/s: %.2f\n"+
			"-------------------------\n",
		st.Examples, st.Retries, st.Elapsed.Seconds(), st.Rate(),
	)
}
