package filter

import (
	"runtime"
	"sync"

	"github.com/ChristianF88/realtyx/ingestor"
)

const (
	parallelThreshold = 50000
	chunkSize         = 10000
)

// recordChunk is a contiguous range of records handled by one worker.
type recordChunk struct {
	seq        int
	start, end int
}

// chunkResult carries the accepted indices of one chunk.
type chunkResult struct {
	seq     int
	indices []int
}

// filterWorker evaluates chunks until the channel is closed.
func filterWorker(records []ingestor.Record, m *matcher, chunks <-chan recordChunk, results chan<- chunkResult) {
	for c := range chunks {
		results <- chunkResult{
			seq:     c.seq,
			indices: applyRange(records, m, c.start, c.end, make([]int, 0, (c.end-c.start)/2)),
		}
	}
}

// applyParallel splits records into chunks and reassembles the results in
// chunk order, so the output matches the sequential path exactly.
func applyParallel(records []ingestor.Record, m *matcher) []int {
	numChunks := (len(records) + chunkSize - 1) / chunkSize
	workers := min(runtime.NumCPU(), numChunks)

	chunks := make(chan recordChunk, numChunks)
	results := make(chan chunkResult, numChunks)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			filterWorker(records, m, chunks, results)
		}()
	}

	for seq := 0; seq < numChunks; seq++ {
		start := seq * chunkSize
		chunks <- recordChunk{seq: seq, start: start, end: min(start+chunkSize, len(records))}
	}
	close(chunks)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([][]int, numChunks)
	total := 0
	for r := range results {
		ordered[r.seq] = r.indices
		total += len(r.indices)
	}

	out := make([]int, 0, total)
	for _, part := range ordered {
		out = append(out, part...)
	}
	return out
}
