package parallel

// bandsPerWorker controls how finely a range is split. More bands than
// workers lets work stealing absorb uneven per-band cost.
const bandsPerWorker = 4

// ForBands splits [0, n) into contiguous bands and calls fn(lo, hi) for each
// band on the pool, returning once every band is done. Bands never overlap,
// so fn may write to any element of its band without synchronization.
//
// A nil pool runs fn(0, n) on the calling goroutine.
func ForBands(p *WorkerPool, n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if p == nil || p.Workers() == 1 {
		fn(0, n)
		return
	}

	bands := min(p.Workers()*bandsPerWorker, n)
	size := (n + bands - 1) / bands
	work := make([]func(), 0, bands)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		work = append(work, func() { fn(lo, hi) })
	}
	p.ExecuteAll(work)
}

// ForEach calls fn(i) for every i in [0, n) using ForBands.
func ForEach(p *WorkerPool, n int, fn func(i int)) {
	ForBands(p, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			fn(i)
		}
	})
}
