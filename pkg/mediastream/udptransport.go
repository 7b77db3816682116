package mediastream

import (
	"fmt"
	"net"
	"sync"

	"github.com/charmbracelet/log"
)

// UDPTransport is the wire-level collaborator for the RTP side: a thin
// net.UDPConn wrapper, grounded on the teacher's transport_udp.go. It owns
// nothing the core's invariants depend on — MediaStream only ever hands it
// already-marshalled bytes.
type UDPTransport struct {
	conn       *net.UDPConn
	remoteAddr *net.UDPAddr
	log        *log.Logger

	mu     sync.RWMutex
	active bool

	onPacket func([]byte)
}

// NewUDPTransport opens a UDP socket at localAddr (empty host/port picks an
// ephemeral port) and optionally binds a fixed remote peer.
func NewUDPTransport(localAddr, remoteAddr string, logger *log.Logger) (*UDPTransport, error) {
	if logger == nil {
		logger = log.Default()
	}

	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("mediastream: resolve local addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("mediastream: listen udp: %w", err)
	}

	t := &UDPTransport{conn: conn, log: logger, active: true}

	if remoteAddr != "" {
		raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("mediastream: resolve remote addr: %w", err)
		}
		t.remoteAddr = raddr
	}
	return t, nil
}

// LocalAddr returns the bound local address.
func (t *UDPTransport) LocalAddr() *net.UDPAddr { return t.conn.LocalAddr().(*net.UDPAddr) }

// SetRemote rebinds the fixed peer address (e.g. once SDP negotiation,
// external to this package, resolves it).
func (t *UDPTransport) SetRemote(addr *net.UDPAddr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remoteAddr = addr
}

// Send writes pkt to the configured remote peer.
func (t *UDPTransport) Send(pkt []byte) error {
	t.mu.RLock()
	active, remote := t.active, t.remoteAddr
	t.mu.RUnlock()

	if !active {
		return fmt.Errorf("mediastream: transport closed")
	}
	if remote == nil {
		return fmt.Errorf("mediastream: no remote address configured")
	}
	_, err := t.conn.WriteToUDP(pkt, remote)
	return err
}

func (t *UDPTransport) Reliable() bool { return false }

// Serve reads packets in a loop, invoking onPacket for each, until Close is
// called. Meant to run on the network thread, per §5.
func (t *UDPTransport) Serve(onPacket func([]byte)) {
	buf := make([]byte, 1500)
	for {
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		onPacket(pkt)
	}
}

// Close shuts down the socket; any blocked Serve call returns.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
	return t.conn.Close()
}
