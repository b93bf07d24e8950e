package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Listener accepts sockets on a background goroutine so the tick owner can
// poll for them without blocking.
type Listener struct {
	ln    net.Listener
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once

	mu  sync.Mutex
	err error
}

// Listen binds addr. Bind failures are returned to the caller.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return NewListener(ln), nil
}

// NewListener wraps an already bound listener.
func NewListener(ln net.Listener) *Listener {
	l := &Listener{
		ln:    ln,
		conns: make(chan net.Conn, 64),
		done:  make(chan struct{}),
	}
	go l.acceptLoop()
	return l
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Accept returns the next pending socket, or false when none is waiting.
func (l *Listener) Accept() (net.Conn, bool) {
	select {
	case c := <-l.conns:
		return c, true
	default:
		return nil, false
	}
}

// Err reports why the accept loop stopped, if it did.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close stops accepting and closes sockets that were never picked up.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.ln.Close()
		for {
			select {
			case c := <-l.conns:
				_ = c.Close()
			default:
				return
			}
		}
	})
	return err
}

func (l *Listener) acceptLoop() {
	var backoff time.Duration
	for {
		c, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if backoff == 0 {
					backoff = 5 * time.Millisecond
				} else if backoff *= 2; backoff > time.Second {
					backoff = time.Second
				}
				time.Sleep(backoff)
				continue
			}
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
			return
		}
		backoff = 0
		select {
		case l.conns <- c:
		case <-l.done:
			_ = c.Close()
			return
		}
	}
}
