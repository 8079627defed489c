package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// guardedConn wraps a socket with an idempotent release. Every terminal
// path of a query (success, error, timeout, cancellation watchdog) calls
// release; only the first call closes the socket.
type guardedConn struct {
	net.Conn
	once sync.Once
}

func (c *guardedConn) release() {
	c.once.Do(func() { _ = c.Conn.Close() })
}

// watchCancel forces the connection deadline when ctx is cancelled so a
// blocked read or write returns through the normal error path. The returned
// stop function must be called once the query settles.
func watchCancel(ctx context.Context, conn net.Conn) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()
	return func() { close(done) }
}

// terminalError maps a socket error to the query's terminal outcome. A
// deadline expiry is a cancellation if the context fired first, otherwise a
// timeout; everything else passes through as a transport error.
func terminalError(ctx context.Context, op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
