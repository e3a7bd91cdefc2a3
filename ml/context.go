// context.go - Compute-Kontext fuer Zwischenergebnisse
// Dieses Modul enthaelt den Context, ueber den ein Vorwaertsdurchlauf seine
// Aktivierungen anlegt. Close gibt alle Aktivierungen am Geraet wieder frei.
package ml

// Context tracks the intermediate tensors of a single computation.
type Context struct {
	dev     Device
	tensors []*Tensor
}

// NewContext returns a context allocating on dev.
func NewContext(dev Device) *Context {
	return &Context{dev: dev}
}

func (c *Context) Device() Device { return c.dev }

// Empty allocates an uninitialized tensor. On this backend it is zeroed.
func (c *Context) Empty(dtype DType, shape ...int) *Tensor {
	t := c.dev.Alloc(dtype, shape...)
	c.tensors = append(c.tensors, t)
	return t
}

// Release frees t before the context is closed.
func (c *Context) Release(t *Tensor) {
	c.dev.Free(t)
}

// Close frees every tensor allocated through the context.
func (c *Context) Close() {
	for _, t := range c.tensors {
		c.dev.Free(t)
	}
	c.tensors = nil
}
