// Package scenario implements small, self-contained exercises of
// allocate/read/write/free against a live cluster, each run by one
// application Client.
package scenario

import (
	"github.com/algorep/dalloc"
	"github.com/algorep/dalloc/internal/logging"
	"github.com/algorep/dalloc/internal/wire"
)

// RunAll drives the scalar scenarios (SimpleAlloc, SimpleWrite,
// SimpleFree) against c in sequence; the array scenarios and
// MultipleRead are not run by it.
func RunAll(c *dalloc.Client, logger *logging.Logger) {
	log := logger.Named("scenario")
	SimpleAlloc(c, log)
	SimpleWrite(c, log)
	SimpleFree(c, log)
}

// MultipleRead allocates a scalar, exchanges its vid with every other
// participant via w's gather, and reads back everyone's vid.
func MultipleRead(w *dalloc.World, index int, c *dalloc.Client, log *logging.Logger) {
	vid := c.Allocate(1)
	if vid == nil {
		log.Warn("allocation exhausted in MultipleRead")
		return
	}
	gathered := w.Gather("multiple_read_vids", len(w.Clients), *vid)
	for _, v := range gathered {
		c.Read(v.(wire.Vid), -1)
	}
	log.Debug("MultipleRead complete")
}

// SimpleAlloc allocates and reads a fresh scalar five times.
func SimpleAlloc(c *dalloc.Client, log *logging.Logger) {
	for i := 0; i < 5; i++ {
		vid := c.Allocate(1)
		if vid == nil {
			log.Warn("allocation exhausted", "iteration", i)
			continue
		}
		c.Read(*vid, -1)
	}
	log.Debug("SimpleAlloc complete")
}

// SimpleWrite allocates a scalar, reads its zero value, writes 67, then
// reads it back, retrying with a fresh allocation until the write lands.
func SimpleWrite(c *dalloc.Client, log *logging.Logger) {
	for {
		vid := c.Allocate(1)
		if vid == nil {
			log.Warn("allocation exhausted in SimpleWrite")
			return
		}
		c.Read(*vid, -1)
		if c.Write(*vid, 67, -1) {
			c.Read(*vid, -1)
			break
		}
	}
	log.Debug("SimpleWrite complete")
}

// SimpleFree allocates and frees a scalar until two frees have succeeded.
func SimpleFree(c *dalloc.Client, log *logging.Logger) {
	freed := 0
	for freed < 2 {
		vid := c.Allocate(1)
		if vid == nil {
			log.Warn("allocation exhausted in SimpleFree")
			return
		}
		if c.Free(*vid) {
			freed++
		}
	}
	log.Debug("SimpleFree complete")
}

// SimpleArray allocates a 4-cell array and reads its last index.
func SimpleArray(c *dalloc.Client, log *logging.Logger) {
	vid := c.Allocate(4)
	if vid == nil {
		log.Warn("allocation exhausted in SimpleArray")
		return
	}
	c.Read(*vid, 3)
	log.Debug("SimpleArray complete")
}

// SimpleArrayWrite allocates a 4-cell array, writes four values across it,
// then reads each one back.
func SimpleArrayWrite(c *dalloc.Client, log *logging.Logger) {
	vid := c.Allocate(4)
	if vid == nil {
		log.Warn("allocation exhausted in SimpleArrayWrite")
		return
	}
	for i := 0; i < 4; i++ {
		c.Write(*vid, i*10, i)
	}
	for i := 0; i < 4; i++ {
		c.Read(*vid, i)
	}
	log.Debug("SimpleArrayWrite complete")
}

// BigArrayAlloc allocates a 6-cell array (large enough to span more than
// one allocator's local capacity, exercising the chained Array segments)
// and reads the first four indices. Returns the head vid so
// BigArrayWrite can extend the exercise.
func BigArrayAlloc(c *dalloc.Client, log *logging.Logger) *wire.Vid {
	vid := c.Allocate(6)
	if vid == nil {
		log.Warn("allocation exhausted in BigArrayAlloc")
		return nil
	}
	for i := 0; i < 4; i++ {
		c.Read(*vid, i)
	}
	log.Debug("BigArrayAlloc complete")
	return vid
}

// BigArrayWrite extends BigArrayAlloc: writes negative values across all
// six indices of the allocated chain and reads them back.
func BigArrayWrite(c *dalloc.Client, log *logging.Logger) {
	vid := BigArrayAlloc(c, log)
	if vid == nil {
		return
	}
	for i := 0; i < 6; i++ {
		c.Write(*vid, -(i + 1), i)
	}
	for i := 0; i < 6; i++ {
		c.Read(*vid, i)
	}
	log.Debug("BigArrayWrite complete")
}
