package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:   	Provide decoded frames to client applications over TCP.
 *
 * Description:	Clients connect and get a copy of every line written
 *		from then on.  Nothing is read from them.  A client which
 *		can't keep up or goes away is disconnected.
 *
 *		A limited number of clients at once.  Beyond that,
 *		connections are accepted and immediately closed.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const MAX_NET_CLIENTS = 3

const NET_WRITE_TIMEOUT = 2 * time.Second

type FrameServer struct {
	listener net.Listener

	mu      sync.Mutex
	clients [MAX_NET_CLIENTS]net.Conn
}

// ListenFrameServer listens on addr, e.g. ":8005".  Port 0 picks one.
func ListenFrameServer(addr string) (*FrameServer, error) {
	var listener, err = net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("frame server: %w", err)
	}

	return &FrameServer{listener: listener}, nil //nolint:exhaustruct
}

// Port actually listened on.
func (s *FrameServer) Port() int {
	if a, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return a.Port
	}

	return 0
}

func (s *FrameServer) Addr() net.Addr {
	return s.listener.Addr()
}

/*-------------------------------------------------------------------
 *
 * Name:        Serve
 *
 * Purpose:     Accept clients until ctx is done.
 *
 * Description:	All client connections are closed on the way out.
 *
 *--------------------------------------------------------------------*/

func (s *FrameServer) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close() //nolint:gosec
	}()

	defer s.closeClients()

	for {
		var conn, err = s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			Logger().Warn("Accept failed", "err", err)

			continue
		}

		var client = s.attach(conn)
		if client < 0 {
			Logger().Warn("Too many clients, refusing", "remote", conn.RemoteAddr())
			conn.Close() //nolint:gosec

			continue
		}

		Logger().Info("Attached to client", "client", client, "remote", conn.RemoteAddr(), "port", s.Port())
	}
}

func (s *FrameServer) attach(conn net.Conn) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range MAX_NET_CLIENTS {
		if s.clients[c] == nil {
			s.clients[c] = conn

			return c
		}
	}

	return -1
}

func (s *FrameServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range MAX_NET_CLIENTS {
		if s.clients[c] != nil {
			s.clients[c].Close() //nolint:gosec
			s.clients[c] = nil
		}
	}
}

// Clients currently attached.
func (s *FrameServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n = 0

	for _, conn := range s.clients {
		if conn != nil {
			n++
		}
	}

	return n
}

// Write sends p to every client.  Never fails; clients with
// problems are dropped.
func (s *FrameServer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c, conn := range s.clients {
		if conn == nil {
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(NET_WRITE_TIMEOUT)) //nolint:gosec

		var _, err = conn.Write(p)
		if err != nil {
			Logger().Info("Detached from client", "client", c, "err", err)
			conn.Close() //nolint:gosec
			s.clients[c] = nil
		}
	}

	return len(p), nil
}

func (s *FrameServer) Close() error {
	s.closeClients()

	return s.listener.Close()
}
