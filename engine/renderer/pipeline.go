package renderer

import (
	"fmt"

	"github.com/spaghettifunk/meshforge/engine/containers"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

// Pipeline pairs a backend pipeline with its per-frame draw queue.
type Pipeline struct {
	Name   string
	Handle metadata.PipelineHandle

	queue *containers.RingQueue[metadata.DrawCommand]
}

// NewPipeline creates a pipeline whose queue holds at most maxInstances draws per frame.
func NewPipeline(name string, handle metadata.PipelineHandle, maxInstances uint32) *Pipeline {
	return &Pipeline{
		Name:   name,
		Handle: handle,
		queue:  containers.NewRingQueue[metadata.DrawCommand](int(maxInstances)),
	}
}

func (p *Pipeline) Enqueue(cmd metadata.DrawCommand) error {
	if err := p.queue.Enqueue(cmd); err != nil {
		return fmt.Errorf("%w: pipeline '%s' holds %d draws", core.ErrQueueFull, p.Name, p.queue.Cap())
	}
	return nil
}

// Len is the number of queued draws.
func (p *Pipeline) Len() int {
	return p.queue.Len()
}

// Free is the number of draws that can still be queued this frame.
func (p *Pipeline) Free() int {
	return p.queue.Cap() - p.queue.Len()
}

func (p *Pipeline) Capacity() int {
	return p.queue.Cap()
}

// Flush hands every queued draw to fn in FIFO order and leaves the queue empty.
// The first error stops the flush; the remaining draws are dropped.
func (p *Pipeline) Flush(fn func(cmd metadata.DrawCommand) error) error {
	for !p.queue.IsEmpty() {
		cmd, err := p.queue.Dequeue()
		if err != nil {
			return err
		}
		if err := fn(cmd); err != nil {
			p.queue.Clear()
			return err
		}
	}
	return nil
}

// Reset drops every queued draw.
func (p *Pipeline) Reset() {
	p.queue.Clear()
}
