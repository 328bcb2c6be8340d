package idempotency

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"idempotent-api/internal/metrics"
	"idempotent-api/internal/result"
	"idempotent-api/pkg/logging/logging"
)

// ResultFunc is a handler that returns what to respond instead of writing it.
// A returned error is a server fault; client errors are results.
type ResultFunc func(r *http.Request) (result.Result, error)

// Handle runs fn inside the idempotency protocol. For a first execution the
// rendered response is buffered, stored, and only then sent, so a failure to
// store still reaches the client as a server error.
func (c *Coordinator) Handle(fn ResultFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.L(ctx)

		s := c.Begin(r)
		defer s.Close()

		replay, err := s.Pre(ctx)
		if err != nil {
			WriteError(w, err)
			return
		}
		if replay != nil {
			metrics.Replays.Inc()
			if err := replay.Write(w, r); err != nil {
				logger.Warn("idempotency_replay_write_failed", zap.Error(err))
			}
			return
		}

		if s.State() == StatePassThrough {
			r = r.WithContext(NewContext(ctx, s.Key()))
		}

		res, err := fn(r)
		if err != nil {
			logger.Error("handler_failed", zap.Error(err))
			WriteError(w, err)
			return
		}
		if res == nil {
			logger.Error("handler_returned_nil_result")
			WriteError(w, ErrUnsupportedResult)
			return
		}

		if s.State() != StatePassThrough {
			if err := res.Write(w, r); err != nil {
				logger.Warn("response_write_failed", zap.Error(err))
			}
			return
		}

		buf := newBufferedWriter()
		if err := res.Write(buf, r); err != nil {
			logger.Error("response_render_failed", zap.Error(err))
			WriteError(w, err)
			return
		}

		if err := s.Post(ctx, res, buf.statusCode(), buf.Header()); err != nil {
			WriteError(w, err)
			return
		}

		if err := buf.flushTo(w); err != nil {
			logger.Warn("response_write_failed", zap.Error(err))
		}
	})
}

// bufferedWriter holds a rendered response until it is flushed.
type bufferedWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedWriter) flushTo(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = append([]string(nil), v...)
	}
	w.WriteHeader(b.statusCode())
	if b.body.Len() == 0 {
		return nil
	}
	_, err := w.Write(b.body.Bytes())
	return err
}
