package meshing

import (
	"context"
	"errors"
	"sync"

	"mc-terrain/internal/world"
)

// ErrPoolClosed is reported for jobs submitted after Shutdown.
var ErrPoolClosed = errors.New("meshing: worker pool closed")

// MeshJob represents a meshing job request
type MeshJob struct {
	Chunk *world.Chunk
	// Result channel - will be sent the result when done
	ResultChan chan MeshResult
}

// MeshResult contains the result of a meshing operation
type MeshResult struct {
	Coord world.ChunkCoord
	Mesh  *Mesh
	Error error
}

// WorkerPool meshes chunks on a fixed set of goroutines. Each job runs under
// ChunkMap.View, so no edit can touch a chunk or its neighbours mid-mesh.
type WorkerPool struct {
	mesher   *Mesher
	m        *world.ChunkMap
	jobQueue chan MeshJob
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWorkerPool creates a new mesh worker pool
func NewWorkerPool(m *world.ChunkMap, mesher *Mesher, workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	if workers < 1 {
		workers = 1
	}
	pool := &WorkerPool{
		mesher:   mesher,
		m:        m,
		jobQueue: make(chan MeshJob, queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}

	// Start worker goroutines
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// SubmitJob submits a mesh generation job to the pool
// Returns true if job was submitted successfully, false if queue is full
func (p *WorkerPool) SubmitJob(job MeshJob) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false // Queue is full
	}
}

// SubmitJobBlocking submits a job and blocks until it's queued. Returns false
// when ctx or the pool is done first.
func (p *WorkerPool) SubmitJobBlocking(ctx context.Context, job MeshJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-ctx.Done():
		return false
	case <-p.ctx.Done():
		return false
	}
}

// worker is the worker goroutine that processes mesh jobs
func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			result := MeshResult{Coord: job.Chunk.Coord}
			p.m.View(func() {
				if job.Chunk.Nodes() == nil {
					result.Error = world.ErrChunkNotFound
					return
				}
				result.Mesh = p.mesher.March(job.Chunk)
			})

			// Send result back
			select {
			case job.ResultChan <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// MeshAll meshes chunks concurrently and returns the results in input order.
func (p *WorkerPool) MeshAll(ctx context.Context, chunks []*world.Chunk) ([]MeshResult, error) {
	results := make(chan MeshResult, len(chunks))
	queued := 0
	for _, c := range chunks {
		if !p.SubmitJobBlocking(ctx, MeshJob{Chunk: c, ResultChan: results}) {
			break
		}
		queued++
	}

	byCoord := make(map[world.ChunkCoord]MeshResult, queued)
	for i := 0; i < queued; i++ {
		select {
		case r := <-results:
			byCoord[r.Coord] = r
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ctx.Done():
			return nil, ErrPoolClosed
		}
	}
	if queued < len(chunks) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrPoolClosed
	}

	out := make([]MeshResult, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, byCoord[c.Coord])
	}
	return out, nil
}

// Shutdown stops the workers. Jobs still queued are dropped.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

// GetQueueLength returns the current number of jobs in the queue
func (p *WorkerPool) GetQueueLength() int {
	return len(p.jobQueue)
}
