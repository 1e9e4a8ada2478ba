package batch

import (
	"sync"
	"time"
)

// ProgressTracker tracks batch processing progress
type ProgressTracker struct {
	Total     int
	Completed int
	StartTime time.Time
	mu        sync.RWMutex
}

// Increment records one finished item and returns the new count
func (p *ProgressTracker) Increment() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Completed++
	return p.Completed
}

func (p *ProgressTracker) Percent() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

func (p *ProgressTracker) Elapsed() time.Duration {
	return time.Since(p.StartTime)
}

// ETA extrapolates the remaining time from the completion rate so far
func (p *ProgressTracker) ETA() time.Duration {
	p.mu.RLock()
	completed := p.Completed
	total := p.Total
	p.mu.RUnlock()

	if completed == 0 {
		return 0
	}

	perItem := p.Elapsed() / time.Duration(completed)
	return perItem * time.Duration(total-completed)
}
