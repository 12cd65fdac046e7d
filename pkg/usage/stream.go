package usage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/albertocavalcante/depview/internal/log"
	"github.com/albertocavalcante/depview/pkg/binio"
)

// StreamMagic starts every usage stream file.
const StreamMagic = "DVU1"

// ErrNotStream is returned when a file does not start with StreamMagic.
var ErrNotStream = errors.New("not a usage stream")

// WriteStream writes a self-contained usage file: StreamMagic followed by an
// LZ4 frame holding ctx's name table, the usage count and the records.
func WriteStream(w io.Writer, ctx *Context, usages []Usage) error {
	if _, err := io.WriteString(w, StreamMagic); err != nil {
		return fmt.Errorf("write stream header: %w", err)
	}

	zw := lz4.NewWriter(w)
	bw := binio.NewWriter(zw)
	ctx.Names().Write(bw)
	bw.Len(len(usages))
	codec := ctx.Codec()
	for _, u := range usages {
		codec.Write(bw, u)
	}
	if err := bw.Err(); err != nil {
		return fmt.Errorf("write usage stream: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush usage stream: %w", err)
	}
	return nil
}

// ReadStream reads a file written by WriteStream into a fresh Context that
// owns the persisted name table. opts are applied after the name table.
func ReadStream(r io.Reader, opts ...Option) (*Context, []Usage, error) {
	magic := make([]byte, len(StreamMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNotStream, err)
	}
	if !bytes.Equal(magic, []byte(StreamMagic)) {
		return nil, nil, fmt.Errorf("%w: bad magic %q", ErrNotStream, magic)
	}

	br := binio.NewReader(lz4.NewReader(r))
	names, err := ReadNameTable(br)
	if err != nil {
		return nil, nil, err
	}

	ctx, err := NewContext(append([]Option{WithNames(names)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}

	n := br.Len()
	codec := ctx.Codec()
	usages := make([]Usage, 0, min(n, 1<<16))
	for i := 0; i < n; i++ {
		u := codec.Read(br)
		if u == nil {
			br.Continue()
			return nil, nil, fmt.Errorf("read usage %d of %d: %w", i, n, br.Err())
		}
		log.Trace("decoded usage", "index", i, "kind", u.Kind())
		usages = append(usages, u)
	}
	if err := br.Err(); err != nil {
		return nil, nil, fmt.Errorf("read usage stream: %w", err)
	}
	return ctx, usages, nil
}
