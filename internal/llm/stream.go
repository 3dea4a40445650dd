package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DeltaStream es una secuencia perezosa de fragmentos de texto del asistente.
// Recv devuelve io.EOF cuando el proveedor cierra el stream ([DONE] incluido).
type DeltaStream interface {
	Recv() (string, error)
	Close() error
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// sseStream lee eventos server-sent del body del proveedor.
type sseStream struct {
	body     io.ReadCloser
	reader   *bufio.Reader
	idle     time.Duration
	timedOut atomic.Bool
	closed   sync.Once
	done     bool
}

func newSSEStream(body io.ReadCloser, idle time.Duration) *sseStream {
	return &sseStream{
		body:   body,
		reader: bufio.NewReader(body),
		idle:   idle,
	}
}

// Recv devuelve el siguiente delta no vacío. Chunks malformados se omiten:
// algunos proveedores intercalan líneas keep-alive que no son JSON.
func (s *sseStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		line, err := s.readLine()
		if err != nil {
			s.done = true
			if err == io.EOF {
				return "", io.EOF
			}
			if s.timedOut.Load() {
				return "", &GatewayError{Kind: ErrKindNetwork, Message: "stream read idle timeout"}
			}
			return "", &GatewayError{Kind: ErrKindNetwork, Message: err.Error()}
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

// readLine acota cada lectura individual: si el proveedor se queda mudo,
// el watchdog cierra el body y la lectura bloqueada despierta con error.
func (s *sseStream) readLine() (string, error) {
	var watchdog *time.Timer
	if s.idle > 0 {
		watchdog = time.AfterFunc(s.idle, func() {
			s.timedOut.Store(true)
			s.body.Close()
		})
		defer watchdog.Stop()
	}
	return s.reader.ReadString('\n')
}

// Close es idempotente y libera la conexión al proveedor.
func (s *sseStream) Close() error {
	var err error
	s.closed.Do(func() {
		err = s.body.Close()
	})
	return err
}
