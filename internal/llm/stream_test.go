package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sseBody(lines ...string) string {
	body := ""
	for _, l := range lines {
		body += l + "\n\n"
	}
	return body
}

func collectDeltas(t *testing.T, stream DeltaStream) []string {
	t.Helper()
	defer stream.Close()

	var deltas []string
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			return deltas
		}
		if err != nil {
			t.Fatalf("unexpected recv error: %v", err)
		}
		deltas = append(deltas, delta)
	}
}

func TestStreamCompleteYieldsDeltasInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(sseBody(
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			`data: {"choices":[{"delta":{"content":"lo, "}}]}`,
			`data: {"choices":[{"delta":{"content":"world"}}]}`,
			`data: [DONE]`,
		)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stream, err := client.StreamComplete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("expected stream, got %v", err)
	}

	deltas := collectDeltas(t, stream)
	want := []string{"Hel", "lo, ", "world"}
	if len(deltas) != len(want) {
		t.Fatalf("expected %d deltas, got %d (%v)", len(want), len(deltas), deltas)
	}
	for i := range want {
		if deltas[i] != want[i] {
			t.Fatalf("delta %d: expected %q, got %q", i, want[i], deltas[i])
		}
	}
}

func TestStreamSkipsMalformedChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sseBody(
			`data: {"choices":[{"delta":{"content":"ok"}}]}`,
			`data: {not json at all`,
			`: keep-alive comment`,
			`data: {"choices":[]}`,
			`data: {"choices":[{"delta":{"content":"fine"}}]}`,
			`data: [DONE]`,
		)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stream, err := client.StreamComplete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("expected stream, got %v", err)
	}

	deltas := collectDeltas(t, stream)
	if len(deltas) != 2 || deltas[0] != "ok" || deltas[1] != "fine" {
		t.Fatalf("expected malformed chunks skipped, got %v", deltas)
	}
}

func TestStreamEndsOnBodyCloseWithoutDone(t *testing.T) {
	// Sin marcador [DONE]: el cierre del body termina la secuencia.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sseBody(`data: {"choices":[{"delta":{"content":"partial"}}]}`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stream, err := client.StreamComplete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("expected stream, got %v", err)
	}

	deltas := collectDeltas(t, stream)
	if len(deltas) != 1 || deltas[0] != "partial" {
		t.Fatalf("expected single delta before EOF, got %v", deltas)
	}
}

func TestStreamRecvAfterEOFStaysEOF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sseBody(`data: [DONE]`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stream, err := client.StreamComplete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("expected stream, got %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Fatalf("expected EOF on repeated recv, got %v", err)
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sseBody(`data: [DONE]`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stream, err := client.StreamComplete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("expected stream, got %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
