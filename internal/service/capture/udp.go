package capture

import (
	"context"
	"errors"
	"fmt"
	"net"

	"gocv.io/x/gocv"

	"fusiontracker/internal/service/capture/mjpeg"
)

// UDPSource receives JPEG frames split across UDP datagrams. Only the most
// recent complete frame is kept; older ones are dropped when the tracker
// falls behind.
type UDPSource struct {
	conn   *net.UDPConn
	latest *mjpeg.Latest
	logger Logger
}

// ListenUDP starts receiving on addr (e.g. ":9000").
func ListenUDP(addr string, logger Logger) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve UDP address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on UDP %s: %w", addr, err)
	}

	s := &UDPSource{
		conn:   conn,
		latest: mjpeg.NewLatest(),
		logger: logger,
	}
	go s.receive()

	logger.Info("UDP camera source listening on %s", conn.LocalAddr())
	return s, nil
}

func (s *UDPSource) receive() {
	defer s.latest.Close()

	assembler := mjpeg.NewAssembler()
	buffer := make([]byte, 65535)
	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		if frame, ok := assembler.Push(remoteAddr.String(), buffer[:n]); ok {
			s.latest.Offer(frame)
		}
	}
}

// Read blocks until a complete frame arrives and decodes it into dst. It
// returns io.EOF when ctx is cancelled or the source is closed.
func (s *UDPSource) Read(ctx context.Context, dst *gocv.Mat) error {
	for {
		data, err := s.latest.Next(ctx)
		if err != nil {
			return err
		}
		decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
		if err != nil {
			s.logger.Warning("Dropping undecodable frame (%d bytes): %v", len(data), err)
			continue
		}
		if decoded.Empty() {
			decoded.Close()
			s.logger.Warning("Dropping empty frame (%d bytes)", len(data))
			continue
		}
		err = decoded.CopyTo(dst)
		decoded.Close()
		return err
	}
}

func (s *UDPSource) Name() string { return "udp://" + s.conn.LocalAddr().String() }

// Close stops the receiver; pending and future Reads return io.EOF.
func (s *UDPSource) Close() error {
	s.latest.Close()
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
