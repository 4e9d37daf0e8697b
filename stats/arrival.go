package stats

// ArrivalStatistics tracks how often one kind of event shows up: first and
// last arrival tick, count, and the distribution of inter-arrival gaps.
type ArrivalStatistics struct {
	FirstArrival  uint64
	LastArrival   uint64
	NumArrivals   uint64
	IntervalStats *Welford
}

func NewArrivalStatistics() *ArrivalStatistics {
	return &ArrivalStatistics{
		FirstArrival:  0,
		LastArrival:   0,
		NumArrivals:   0,
		IntervalStats: NewWelford(),
	}
}

// Append records an arrival. Ticks are expected to be non-decreasing within
// a session; call Rebase after a stream restart so the gap across the
// discontinuity is not counted.
func (arrivals *ArrivalStatistics) Append(tick uint64) {
	if arrivals.NumArrivals == 0 {
		arrivals.FirstArrival = tick
	} else if tick >= arrivals.LastArrival {
		arrivals.IntervalStats.Update(float64(tick - arrivals.LastArrival))
	}
	arrivals.NumArrivals++
	arrivals.LastArrival = tick
}

// Rebase marks a timebase discontinuity: the next arrival starts a new gap
// series without resetting the counters.
func (arrivals *ArrivalStatistics) Rebase() {
	arrivals.LastArrival = ^uint64(0)
}

func (arrivals *ArrivalStatistics) MeanInterval() float64 {
	return arrivals.IntervalStats.GetMean()
}
