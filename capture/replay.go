package capture

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ReplaySource reads length-prefixed raw IPv4 frames from a reader and emits
// them as Records, timestamped at read time. Each frame is a big-endian
// uint16 length followed by that many packet bytes.
type ReplaySource struct {
	out    chan Record
	logger *logrus.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

var _ Source = &ReplaySource{}

func NewReplaySource(r io.Reader, logger *logrus.Logger) *ReplaySource {
	s := &ReplaySource{
		out:    make(chan Record),
		logger: logger,
		closed: make(chan struct{}),
	}
	go s.loop(r)
	return s
}

func (s *ReplaySource) loop(r io.Reader) {
	defer close(s.out)

	var lenBuf [2]byte
	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.WithError(err).Error("Error while reading replay frame length")
			}
			return
		}
		frame := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
		if _, err := io.ReadFull(r, frame); err != nil {
			s.logger.WithError(err).Error("Error while reading replay frame")
			return
		}

		rec, err := DecodeIPv4(frame, time.Now())
		if err != nil {
			s.logger.WithError(err).Debug("Skipping undecodable replay frame")
			continue
		}

		select {
		case s.out <- rec:
		case <-s.closed:
			return
		}
	}
}

func (s *ReplaySource) Packets() <-chan Record {
	return s.out
}

func (s *ReplaySource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

// WriteFrame writes one length-prefixed frame in the replay format.
func WriteFrame(w io.Writer, frame []byte) error {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}
