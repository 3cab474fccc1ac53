package openaicompat

import (
	"bytes"
	"io"

	"github.com/r3labs/sse/v2"
)

// frameReader wraps r3labs/sse's raw event-stream reader (the piece of that
// library that does not assume a long-lived reconnecting client — it simply
// splits an io.Reader into raw SSE frames) and extracts the `data:` payload
// lines, joined the way the SSE spec requires multi-line data fields to be
// joined.
type frameReader struct {
	inner *sse.EventStreamReader
}

func newFrameReader(body io.Reader) *frameReader {
	return &frameReader{inner: sse.NewEventStreamReader(body, 1<<20)}
}

// next returns the next frame's decoded data payload. It returns io.EOF when
// the stream ends normally.
func (r *frameReader) next() (string, error) {
	raw, err := r.inner.ReadEvent()
	if err != nil {
		return "", err
	}
	var data [][]byte
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if bytes.HasPrefix(line, []byte("data:")) {
			data = append(data, bytes.TrimPrefix(bytes.TrimPrefix(line, []byte("data:")), []byte(" ")))
		}
	}
	return string(bytes.Join(data, []byte("\n"))), nil
}
