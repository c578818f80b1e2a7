package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"fpa-bridge/internal/bridge"
)

type udpConn interface {
	io.Writer
	io.Closer
}

// UDP sends one JSON datagram per record to a fixed destination.
type UDP struct {
	dest string

	mu   sync.Mutex
	conn udpConn
}

func NewUDP(dest string) (*UDP, error) {
	return newUDP(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newUDP(
	dest string,
	resolve func(network, address string) (*net.UDPAddr, error),
	dial func(network string, laddr, raddr *net.UDPAddr) (udpConn, error),
) (*UDP, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &UDP{dest: dest, conn: conn}, nil
}

func (u *UDP) Name() string { return "udp" }

func (u *UDP) Write(env bridge.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return u.send(payload)
}

func (u *UDP) send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return fmt.Errorf("udp sink %s is closed", u.dest)
	}
	_, err := u.conn.Write(payload)
	return err
}

func (u *UDP) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	err := u.conn.Close()
	u.conn = nil
	return err
}
