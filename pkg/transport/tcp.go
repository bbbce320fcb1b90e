package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"pitlane/pkg/protocol"
)

// Listener connects to a TCP bridge that relays powerbase traffic. Each
// record on the wire is COBS-encoded and 0x00-delimited; the decoded form
// is one characteristic id byte followed by the payload. Notifications
// flow out on the channel supplied to StartListener; writes go back over
// the same connection and satisfy the Transport interface.
type Listener struct {
	addr         string
	out          chan<- Notification
	reconnect    time.Duration
	reconnectMax time.Duration
	bufSize      int
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	errorHandler func(error)

	mu   sync.Mutex
	conn net.Conn
}

type Option func(*Listener)

func WithReconnectInterval(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.reconnect = d
		}
	}
}

func WithReconnectMax(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.reconnectMax = d
		}
	}
}

func WithBufferSize(n int) Option {
	return func(l *Listener) {
		if n > 0 {
			l.bufSize = n
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.dialTimeout = d
		}
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.readTimeout = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.writeTimeout = d
		}
	}
}

func WithErrorHandler(fn func(error)) Option {
	return func(l *Listener) {
		if fn != nil {
			l.errorHandler = fn
		}
	}
}

func StartListener(ctx context.Context, addr string, out chan<- Notification, opts ...Option) *Listener {
	l := &Listener{
		addr:         addr,
		out:          out,
		reconnect:    1 * time.Second,
		reconnectMax: 30 * time.Second,
		bufSize:      4 * 1024,
		dialTimeout:  5 * time.Second,
		writeTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run(ctx)
	return l
}

// WriteCharacteristic sends one record to the bridge. Serialized by the
// connection mutex, so concurrent callers never interleave records.
func (l *Listener) WriteCharacteristic(c protocol.Characteristic, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return ErrNotConnected
	}

	record := make([]byte, 0, len(payload)+1)
	record = append(record, byte(c))
	record = append(record, payload...)
	frame := append(protocol.CobsEncode(record), 0x00)

	if l.writeTimeout > 0 {
		_ = l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
	}
	if _, err := l.conn.Write(frame); err != nil {
		return fmt.Errorf("bridge write: %w", err)
	}
	return nil
}

func (l *Listener) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := net.DialTimeout("tcp", l.addr, l.dialTimeout)
		if err != nil {
			l.handleError(err)
			attempt++
			l.sleepBackoff(ctx, attempt)
			continue
		}

		attempt = 0
		l.setConn(conn)
		err = l.handleConn(ctx, conn)
		l.setConn(nil)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.handleError(err)
		}
		l.sleepBackoff(ctx, 1)
	}
}

func (l *Listener) setConn(conn net.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
}

func (l *Listener) handleConn(ctx context.Context, conn net.Conn) error {
	reader := bufio.NewReaderSize(conn, l.bufSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if l.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(l.readTimeout))
		}
		frame, err := reader.ReadBytes(0x00)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				continue
			}
			return err
		}

		if frame[len(frame)-1] == 0x00 {
			frame = frame[:len(frame)-1]
		}
		if len(frame) == 0 {
			continue
		}

		record, err := protocol.CobsDecode(frame)
		if err != nil || len(record) == 0 {
			if err != nil {
				l.handleError(fmt.Errorf("bridge record: %w", err))
			}
			continue
		}

		n := Notification{
			Characteristic: protocol.Characteristic(record[0]),
			Payload:        append([]byte(nil), record[1:]...),
		}
		select {
		case l.out <- n:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) sleepBackoff(ctx context.Context, attempt int) {
	wait := min(l.reconnect*time.Duration(attempt), l.reconnectMax)
	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	timer.Stop()
}

func (l *Listener) handleError(err error) {
	if l.errorHandler != nil {
		l.errorHandler(err)
	}
}
