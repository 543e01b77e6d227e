package video

import (
	"bufio"
	"fmt"
	"os"
)

// PCMSpool collects decoded s16le samples on disk so that the encoder can
// read them as its audio input.
type PCMSpool struct {
	path  string
	f     *os.File
	w     *bufio.Writer
	bytes int64
}

func NewPCMSpool(path string) (*PCMSpool, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcm spool: %w", err)
	}
	return &PCMSpool{path: path, f: f, w: bufio.NewWriterSize(f, 1<<20)}, nil
}

func (s *PCMSpool) WriteSamples(pcm []byte) error {
	n, err := s.w.Write(pcm)
	s.bytes += int64(n)
	return err
}

// Close flushes buffered samples. The file stays on disk until Remove.
func (s *PCMSpool) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.w.Flush()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	return err
}

func (s *PCMSpool) Remove() error {
	s.Close()
	return os.Remove(s.path)
}

func (s *PCMSpool) Path() string { return s.path }
func (s *PCMSpool) Size() int64  { return s.bytes }
