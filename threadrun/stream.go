package threadrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const dataPrefix = "data: "

// MessageStream provides a blocking pull iterator over the events of one
// streamed run. It owns the underlying response body and releases it on
// every exit path: natural end of stream, decode error, or cancellation.
type MessageStream struct {
	body    io.ReadCloser
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	timeout time.Duration

	buf    []byte
	chunk  []byte
	closed bool
}

func newMessageStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, logger *slog.Logger, timeout time.Duration) *MessageStream {
	return &MessageStream{
		body:    body,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		timeout: timeout,
		chunk:   make([]byte, 4096),
	}
}

// Next blocks until the next event is available. The boolean reports whether
// the stream is still live; (nil, false, nil) means clean end of stream.
func (s *MessageStream) Next(ctx context.Context) (*StreamEvent, bool, error) {
	if s.closed {
		return nil, false, nil
	}

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return nil, false, s.translateCtxError(ctx.Err())
		case <-s.ctx.Done():
			s.Close()
			return nil, false, s.translateCtxError(s.ctx.Err())
		default:
		}

		if line, ok := s.nextLine(); ok {
			if event := s.parseFrame(line); event != nil {
				return event, true, nil
			}
			continue
		}

		n, err := s.body.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			continue
		}
		if err == io.EOF {
			// A trailing line is confirmed complete by stream end.
			remainder := strings.TrimRight(string(s.buf), "\r\n")
			s.buf = nil
			s.Close()
			if remainder != "" {
				if event := s.parseFrame(remainder); event != nil {
					return event, true, nil
				}
			}
			return nil, false, nil
		}
		if err != nil {
			s.Close()
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return nil, false, s.translateCtxError(ctxErr)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, false, newTimeoutError(s.timeout.String(), err)
			}
			return nil, false, newNetworkError("failed to read stream", err)
		}
	}
}

// Close releases the underlying connection. Safe to call multiple times.
func (s *MessageStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return s.body.Close()
}

// nextLine pops one complete line off the rolling buffer. A trailing partial
// line stays buffered until the chunk completing it arrives.
func (s *MessageStream) nextLine() (string, bool) {
	idx := bytes.IndexByte(s.buf, '\n')
	if idx < 0 {
		return "", false
	}
	line := strings.TrimRight(string(s.buf[:idx]), "\r")
	s.buf = s.buf[idx+1:]
	return line, true
}

// parseFrame decodes one line into an event. Non-data lines and empty
// payloads are skipped; a malformed payload is logged and dropped rather
// than aborting the stream.
func (s *MessageStream) parseFrame(line string) *StreamEvent {
	if !strings.HasPrefix(line, dataPrefix) {
		return nil
	}
	payload := line[len(dataPrefix):]
	if strings.TrimSpace(payload) == "" {
		return nil
	}

	var event StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		s.logger.Debug("dropping malformed stream frame", "error", err, "payload", payload)
		return nil
	}
	return &event
}

func (s *MessageStream) translateCtxError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newTimeoutError(s.timeout.String(), err)
	}
	return newNetworkError("stream canceled", err)
}

// aggregate drains a stream into a RunResult. Every event is appended to the
// log and handed to onEvent before the next frame is requested, so a slow
// handler throttles consumption. A stream.error event fails the whole call;
// the events observed up to it travel in the error's Details.
func aggregate(ctx context.Context, stream *MessageStream, onEvent func(StreamEvent) error) (*RunResult, error) {
	defer stream.Close()

	result := &RunResult{}
	for {
		event, ok, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return result, nil
		}

		result.Events = append(result.Events, *event)
		if onEvent != nil {
			if err := onEvent(*event); err != nil {
				return nil, err
			}
		}

		switch event.Type {
		case EventResponseCompleted:
			result.Content = event.Content
		case EventStreamCompleted:
			result.Run = &RunSummary{
				ID:     event.RunID,
				Status: event.Status,
				Usage:  event.Usage,
			}
		case EventStreamError:
			message := event.Message
			if message == "" {
				message = "stream failed"
			}
			return nil, newError(
				http.StatusInternalServerError,
				message,
				withCode(CodeStreamError),
				withDetails(map[string]interface{}{"events": result.Events}),
			)
		}
	}
}
