// Package engine abstracts the upstream model stream: a source of raw
// chunks the runtime scans for text and tool tags. Provider protocol
// shaping lives behind this boundary and nowhere else.
package engine

import (
	"context"
	"io"

	"github.com/go-go-golems/burattino/pkg/events"
)

// Stream yields chunks from a running model completion. Next returns io.EOF
// once the stream is exhausted and the context's error once it is cancelled.
type Stream interface {
	Next(ctx context.Context) (events.Chunk, error)
}

// ScriptedStream replays a fixed chunk sequence. Used by tests and the demo
// driver to exercise the pipeline without a provider.
type ScriptedStream struct {
	chunks []events.Chunk
	idx    int
}

func NewScriptedStream(chunks ...events.Chunk) *ScriptedStream {
	return &ScriptedStream{chunks: chunks}
}

// ScriptedTextStream wraps plain text pieces as root-text chunks.
func ScriptedTextStream(pieces ...string) *ScriptedStream {
	chunks := make([]events.Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, events.TextChunk(p))
	}
	return NewScriptedStream(chunks...)
}

func (s *ScriptedStream) Next(ctx context.Context) (events.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return events.Chunk{}, err
	}
	if s.idx >= len(s.chunks) {
		return events.Chunk{}, io.EOF
	}
	chunk := s.chunks[s.idx]
	s.idx++
	return chunk, nil
}

var _ Stream = (*ScriptedStream)(nil)
