package engine

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/burattino/pkg/events"
)

// OpenAIStream adapts a go-openai chat completion stream to the chunk
// interface. Content deltas surface as root text; reasoning deltas (where
// the provider sends them) surface as reasoning chunks.
type OpenAIStream struct {
	stream *openai.ChatCompletionStream
}

func NewOpenAIStream(stream *openai.ChatCompletionStream) *OpenAIStream {
	return &OpenAIStream{stream: stream}
}

// Open starts a streaming chat completion and wraps it.
func Open(ctx context.Context, client *openai.Client, req openai.ChatCompletionRequest) (*OpenAIStream, error) {
	req.Stream = true
	stream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "create chat completion stream")
	}
	return NewOpenAIStream(stream), nil
}

func (s *OpenAIStream) Next(ctx context.Context) (events.Chunk, error) {
	for {
		if err := ctx.Err(); err != nil {
			return events.Chunk{}, err
		}
		resp, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return events.Chunk{}, io.EOF
			}
			return events.Chunk{}, errors.Wrap(err, "receive stream chunk")
		}
		if len(resp.Choices) == 0 {
			log.Trace().Msg("stream response without choices")
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		return events.TextChunk(delta), nil
	}
}

// Close releases the underlying stream.
func (s *OpenAIStream) Close() error {
	s.stream.Close()
	return nil
}

var _ Stream = (*OpenAIStream)(nil)
