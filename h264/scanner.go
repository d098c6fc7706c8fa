// Package h264 extracts NAL units from H.264 Annex-B byte streams.
package h264

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
)

var (
	ErrNilSource     = errors.New("source is nil")
	ErrInvalidStream = errors.New("data is not an Annex-B H.264 bitstream")
)

// Scanner reads NAL units one at a time from a seekable Annex-B source.
// It is not safe for concurrent use.
type Scanner struct {
	src    io.ReadSeeker
	r      *bufio.Reader
	cursor int64
	valid  bool

	nalBuffer []byte
}

// NewScanner checks that src starts with a start code and positions the
// scanner right after it. It fails with ErrInvalidStream otherwise.
func NewScanner(src io.ReadSeeker) (*Scanner, error) {
	if src == nil {
		return nil, ErrNilSource
	}

	s := &Scanner{
		src:       src,
		r:         bufio.NewReader(src),
		nalBuffer: make([]byte, 0, 4096),
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens the named file as a scanner source. The file is closed if the
// stream turns out to be invalid; otherwise Close releases it.
func Open(name string) (*Scanner, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStream, err)
	}

	s, err := NewScanner(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the source when it implements io.Closer.
func (s *Scanner) Close() error {
	s.valid = false
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reset rewinds the source to its beginning and checks the leading start
// code again.
func (s *Scanner) Reset() error {
	s.valid = false
	s.cursor = 0
	s.nalBuffer = s.nalBuffer[:0]

	if _, err := s.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStream, err)
	}
	s.r.Reset(s.src)

	if !s.skipLeadingStartCode() {
		return ErrInvalidStream
	}
	s.valid = true
	return nil
}

func (s *Scanner) Valid() bool {
	return s.valid
}

// Offset is the position of the next byte the scanner will consume.
func (s *Scanner) Offset() int64 {
	return s.cursor
}

// skipLeadingStartCode consumes two or more zero bytes followed by 0x01.
// Any other byte before that fails the check.
func (s *Scanner) skipLeadingStartCode() bool {
	zeros := 0
	for {
		b, err := s.readByte()
		if err != nil {
			return false
		}

		switch {
		case b == 0x01 && zeros >= 2:
			return true
		case b == 0x00:
			zeros++
		default:
			return false
		}
	}
}

func (s *Scanner) readByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	s.cursor++
	return b, nil
}

// Read returns the next NAL unit, or io.EOF once no more units remain.
// Any other read error invalidates the scanner until Reset.
// Zero bytes of the terminating start code (including a longer leading
// zero run) are not part of the unit. Empty units between adjacent start
// codes are skipped, and a unit not followed by a start code is returned
// when the stream ends.
func (s *Scanner) Read() (*NAL, error) {
	if !s.valid {
		return nil, io.EOF
	}

	for {
		start := s.cursor
		s.nalBuffer = s.nalBuffer[:0]
		zeros := 0

		for {
			b, err := s.readByte()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					// only Reset can resume after a failed read
					s.valid = false
					s.nalBuffer = s.nalBuffer[:0]
					return nil, fmt.Errorf("error while reading nal unit at offset %d: %w", start, err)
				}
				// trailing_zero_8bits never belong to the unit
				if n := len(s.nalBuffer) - zeros; n > 0 {
					return s.emit(start, n), nil
				}
				return nil, io.EOF
			}

			if b == 0x01 && zeros >= 2 {
				break
			}

			if b == 0x00 {
				zeros++
			} else {
				zeros = 0
			}
			s.nalBuffer = append(s.nalBuffer, b)
		}

		if n := len(s.nalBuffer) - zeros; n > 0 {
			return s.emit(start, n), nil
		}
	}
}

func (s *Scanner) emit(offset int64, n int) *NAL {
	data := make([]byte, n)
	copy(data, s.nalBuffer[:n])
	return &NAL{Offset: offset, Data: data}
}

// ReadAll drains the scanner, yielding an Entry per unit. A read failure
// is yielded once as the final element.
func (s *Scanner) ReadAll() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for index := 0; ; index++ {
			nal, err := s.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Entry{}, err)
				return
			}

			e := Entry{
				Index:  index,
				Type:   nal.Type(),
				Offset: nal.Offset,
				Size:   nal.Size(),
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}
