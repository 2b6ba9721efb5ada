// Package packaging turns captured image passes into videos and frame folders.
package packaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/san-kum/containment/internal/engine"
)

// Ext returns the file extension used for a pass: jpg for the image pass
// unless png is requested, png for every other pass.
func Ext(pass string, png bool) string {
	if pass == "_img" && !png {
		return "jpg"
	}
	return "png"
}

// Prefix is the file name prefix of a pass, its mask without the leading
// underscore.
func Prefix(pass string) string { return strings.Replace(pass, "_", "", 1) }

// FrameName is the file a pass of a frame is stored under.
func FrameName(pass string, frame int, png bool) string {
	return fmt.Sprintf("%s_%04d.%s", Prefix(pass), frame, Ext(pass, png))
}

// Capture saves every image pass the engine returns into dir.
type Capture struct {
	dir string
	png bool

	mu    sync.Mutex
	frame int
	err   error
}

func NewCapture(dir string, png bool) (*Capture, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Capture{dir: dir, png: png}, nil
}

func (c *Capture) Dir() string { return c.dir }

// Frames is the number of frames captured since the last Reset.
func (c *Capture) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Err returns the first write error since the last Reset.
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Reset restarts frame numbering for the next trial.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = 0
	c.err = nil
}

func (c *Capture) Middleware() engine.Middleware {
	return func(next engine.Communicator) engine.Communicator {
		return engine.CommunicatorFunc(func(ctx context.Context, cmds []engine.Command) (*engine.Response, error) {
			resp, err := next.Communicate(ctx, cmds)
			if err == nil {
				c.save(resp)
			}
			return resp, err
		})
	}
}

func (c *Capture) save(resp *engine.Response) {
	if resp == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	captured := false
	for _, rec := range resp.Records {
		imgs, ok := rec.(engine.Images)
		if !ok {
			continue
		}
		captured = true
		for _, p := range imgs.Passes {
			path := filepath.Join(c.dir, FrameName(p.Pass, c.frame, c.png))
			if err := os.WriteFile(path, p.Data, 0o644); err != nil && c.err == nil {
				c.err = err
			}
		}
	}
	if captured {
		c.frame++
	}
}
