package llm

import (
	"context"
	"io"
)

// MockGateway permite tests sin llamar al proveedor real.
type MockGateway struct {
	Completion  Completion
	Deltas      []string
	Err         error
	StreamErr   error // devuelto por Recv tras agotar Deltas, en vez de io.EOF
	LastHistory []Message
}

func (m *MockGateway) Complete(_ context.Context, history []Message, _ ...Option) (Completion, error) {
	m.LastHistory = history
	if m.Err != nil {
		return Completion{}, m.Err
	}
	return m.Completion, nil
}

func (m *MockGateway) StreamComplete(_ context.Context, history []Message, _ ...Option) (DeltaStream, error) {
	m.LastHistory = history
	if m.Err != nil {
		return nil, m.Err
	}
	return &sliceStream{deltas: m.Deltas, errAtEnd: m.StreamErr}, nil
}

type sliceStream struct {
	deltas   []string
	next     int
	errAtEnd error
	Closed   bool
}

func (s *sliceStream) Recv() (string, error) {
	if s.next >= len(s.deltas) {
		if s.errAtEnd != nil {
			return "", s.errAtEnd
		}
		return "", io.EOF
	}
	delta := s.deltas[s.next]
	s.next++
	return delta, nil
}

func (s *sliceStream) Close() error {
	s.Closed = true
	return nil
}
