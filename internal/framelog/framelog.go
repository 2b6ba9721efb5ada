// Package framelog keeps a compressed JSONL record of every engine round trip.
package framelog

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/san-kum/containment/internal/engine"
)

// Entry is one round trip.
type Entry struct {
	Seq      int       `json:"seq"`
	Time     time.Time `json:"time"`
	Frame    int       `json:"frame"`
	Commands []string  `json:"commands"`
	Records  []string  `json:"records,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Writer appends JSON lines to a zstd stream.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// Create opens path for writing, creating parent directories.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return os.ErrClosed
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.w != nil {
		err = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	return err
}

// Read decodes every entry in a log written by Writer.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// Recorder returns middleware that logs each round trip to w. Write failures
// never fail the round trip itself.
func Recorder(w *Writer) engine.Middleware {
	return func(next engine.Communicator) engine.Communicator {
		var (
			mu  sync.Mutex
			seq int
		)
		return engine.CommunicatorFunc(func(ctx context.Context, cmds []engine.Command) (*engine.Response, error) {
			resp, err := next.Communicate(ctx, cmds)

			mu.Lock()
			e := Entry{Seq: seq, Time: time.Now().UTC(), Commands: engine.Names(cmds)}
			seq++
			mu.Unlock()

			if err != nil {
				e.Error = err.Error()
			} else if resp != nil {
				e.Frame = resp.Frame
				e.Records = resp.Tags()
			}
			_ = w.Write(e)
			return resp, err
		})
	}
}
