package transport

import (
	"bufio"
	"context"
	"time"
)

// ChunkFunc is fired with each chunk of the response body as soon as it is
// read from the socket.
type ChunkFunc func(chunk []byte)

// CompleteFunc is fired once with the final status code and optional
// transport error (status is 0 for pre-response failures), per §4.2.
type CompleteFunc func(statusCode int, err error)

// Stream performs request mode (ii): headers are parsed first, then any
// bytes already buffered by the reader are delivered as the first chunk,
// and every subsequent socket read yields the next chunk. No dechunking or
// SSE framing happens here.
func (c *Client) Stream(ctx context.Context, req Request, onChunk ChunkFunc, onComplete CompleteFunc) {
	parsed, err := ParseURL(req.URL)
	if err != nil {
		onComplete(0, err)
		return
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, derr := c.dial(sctx, parsed)
	if derr != nil {
		onComplete(0, derr)
		return
	}
	defer conn.Close()

	if deadline, ok := sctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	headers := req.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Accept"] = "text/event-stream"

	line := buildRequestLine(req.Method, parsed.RequestTarget(), parsed.Host, headers, req.Body)
	if _, err := conn.Write(line); err != nil {
		onComplete(0, fail(FailureWrite, err))
		return
	}
	if len(req.Body) > 0 {
		if _, err := conn.Write(req.Body); err != nil {
			onComplete(0, fail(FailureWrite, err))
			return
		}
	}

	reader := bufio.NewReader(conn)
	status, _, err := readStatusAndHeaders(reader)
	if err != nil {
		onComplete(0, fail(FailureRead, err))
		return
	}

	// Deliver whatever the reader already buffered from the socket read
	// that parsed the headers, then keep reading chunk by chunk.
	if n := reader.Buffered(); n > 0 {
		buf := make([]byte, n)
		if _, err := reader.Read(buf); err == nil && len(buf) > 0 {
			onChunk(buf)
		}
	}

	buf := make([]byte, 32*1024)
	for {
		select {
		case <-sctx.Done():
			onComplete(status, fail(FailureTimeout, sctx.Err()))
			return
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onChunk(chunk)
		}
		if err != nil {
			if isCloseNotify(err) {
				onComplete(status, nil)
				return
			}
			onComplete(status, fail(FailureRead, err))
			return
		}
	}
}
