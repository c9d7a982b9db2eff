// Package rendertest provides in-memory renderer collaborators for tests.
package rendertest

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

var ErrInjected = errors.New("injected device failure")

// Buffer is the backend handle handed out by Device.
type Buffer struct {
	ID    int
	Data  []byte
	Alive bool
}

// Device is a fake renderer.Device that keeps buffers in memory and
// records every call. Set FailCreateAt to make the n-th CreateBuffer
// call (1-based) fail.
type Device struct {
	Extent metadata.Extent2D

	FailCreateAt int
	FailCopy     bool

	Created   []*metadata.RenderBuffer
	Destroyed []*metadata.RenderBuffer
	Copies    int

	createCalls int
	nextID      int
}

func NewDevice() *Device {
	return &Device{Extent: metadata.Extent2D{Width: 1280, Height: 720}}
}

func (d *Device) CreateBuffer(size uint64, usage metadata.BufferUsage, props metadata.MemoryProperty) (*metadata.RenderBuffer, error) {
	d.createCalls++
	if d.FailCreateAt > 0 && d.createCalls == d.FailCreateAt {
		return nil, fmt.Errorf("create buffer #%d: %w", d.createCalls, ErrInjected)
	}
	d.nextID++
	handle := &Buffer{ID: d.nextID, Data: make([]byte, size), Alive: true}
	buf := metadata.NewRenderBuffer(handle, fmt.Sprintf("memory-%d", d.nextID), size, usage, props, d)
	d.Created = append(d.Created, buf)
	return buf, nil
}

func (d *Device) WriteBuffer(buffer *metadata.RenderBuffer, data []byte) error {
	b, ok := buffer.Handle.(*Buffer)
	if !ok || !b.Alive {
		return fmt.Errorf("write to invalid buffer")
	}
	if buffer.Properties&metadata.MemoryPropertyHostVisible == 0 {
		return fmt.Errorf("write to buffer %d that is not host visible", b.ID)
	}
	copy(b.Data, data)
	return nil
}

func (d *Device) CopyBuffer(src, dst *metadata.RenderBuffer, size uint64) error {
	if d.FailCopy {
		return ErrInjected
	}
	s, ok := src.Handle.(*Buffer)
	if !ok || !s.Alive {
		return fmt.Errorf("copy from invalid buffer")
	}
	t, ok := dst.Handle.(*Buffer)
	if !ok || !t.Alive {
		return fmt.Errorf("copy to invalid buffer")
	}
	copy(t.Data[:size], s.Data[:size])
	d.Copies++
	return nil
}

func (d *Device) DestroyBuffer(buffer *metadata.RenderBuffer) {
	if b, ok := buffer.Handle.(*Buffer); ok {
		b.Alive = false
	}
	d.Destroyed = append(d.Destroyed, buffer)
}

func (d *Device) ViewExtent() metadata.Extent2D {
	return d.Extent
}

// Live returns the buffers that have been created and not destroyed.
func (d *Device) Live() []*metadata.RenderBuffer {
	var live []*metadata.RenderBuffer
	for _, b := range d.Created {
		if !b.IsDestroyed() {
			live = append(live, b)
		}
	}
	return live
}

// Contents returns the bytes currently stored in a buffer created by d.
func Contents(buffer *metadata.RenderBuffer) []byte {
	if b, ok := buffer.Handle.(*Buffer); ok {
		return b.Data
	}
	return nil
}
