package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Roles aceptados por la API de chat completions.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message es un turno del historial en formato agnóstico del proveedor.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options agrupa parámetros opcionales de una invocación.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

type Option func(*Options)

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

func WithTemperature(temp float64) Option {
	return func(o *Options) { o.Temperature = temp }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// Usage reporta el consumo de tokens de una invocación.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion es el resultado de una invocación síncrona.
type Completion struct {
	Text  string
	Usage Usage
}

// Gateway define la interfaz hacia el proveedor de completions.
type Gateway interface {
	Complete(ctx context.Context, history []Message, opts ...Option) (Completion, error)
	StreamComplete(ctx context.Context, history []Message, opts ...Option) (DeltaStream, error)
}

const (
	completeTimeout = 30 * time.Second
	streamIdleRead  = 60 * time.Second
)

// HTTPClient implementa Gateway contra una API OpenAI-compatible (DeepSeek).
type HTTPClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	// Sin timeout global: un stream puede vivir más de 30s; la lectura
	// individual queda acotada por el watchdog del stream.
	streamClient *http.Client
}

// NewHTTPClient construye un cliente apuntando a la API de chat completions.
// La credencial se valida en la primera invocación, no aquí.
func NewHTTPClient(baseURL, apiKey, model string, temperature float64, maxTokens int) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.deepseek.com/v1"
	}
	if model == "" {
		model = "deepseek-chat"
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		temperature:  temperature,
		maxTokens:    maxTokens,
		client:       &http.Client{Timeout: completeTimeout},
		streamClient: &http.Client{},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete invoca al proveedor de forma síncrona y devuelve la primera choice.
func (c *HTTPClient) Complete(ctx context.Context, history []Message, opts ...Option) (Completion, error) {
	resp, gerr := c.post(ctx, c.client, history, false, opts)
	if gerr != nil {
		return Completion{}, gerr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, &GatewayError{Kind: ErrKindNetwork, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return Completion{}, classifyStatus(resp.StatusCode, apiErrorMessage(respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return Completion{}, &GatewayError{Kind: ErrKindProtocol, Message: fmt.Sprintf("unmarshal response: %v", err)}
	}
	if cr.Error != nil {
		return Completion{}, &GatewayError{Kind: ErrKindProtocol, Message: cr.Error.Message}
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return Completion{}, &GatewayError{Kind: ErrKindProtocol, Message: "empty completion"}
	}

	return Completion{Text: cr.Choices[0].Message.Content, Usage: cr.Usage}, nil
}

// StreamComplete abre un stream SSE y lo expone como secuencia de deltas.
// La secuencia no es reiniciable: una nueva llamada reemite el request.
func (c *HTTPClient) StreamComplete(ctx context.Context, history []Message, opts ...Option) (DeltaStream, error) {
	resp, gerr := c.post(ctx, c.streamClient, history, true, opts)
	if gerr != nil {
		return nil, gerr
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, classifyStatus(resp.StatusCode, apiErrorMessage(respBody))
	}

	return newSSEStream(resp.Body, streamIdleRead), nil
}

func (c *HTTPClient) post(ctx context.Context, client *http.Client, history []Message, stream bool, opts []Option) (*http.Response, *GatewayError) {
	if c.apiKey == "" {
		return nil, &GatewayError{Kind: ErrKindAuthentication, Message: "api key not configured"}
	}

	options := Options{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, opt := range opts {
		opt(&options)
	}

	reqBody := chatRequest{
		Model:       options.Model,
		Messages:    history,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		Stream:      stream,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &GatewayError{Kind: ErrKindProtocol, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &GatewayError{Kind: ErrKindProtocol, Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &GatewayError{Kind: ErrKindNetwork, Message: err.Error()}
	}
	return resp, nil
}

func apiErrorMessage(body []byte) string {
	var er struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &er); err == nil && er.Error != nil && er.Error.Message != "" {
		return er.Error.Message
	}
	return strings.TrimSpace(string(body))
}
