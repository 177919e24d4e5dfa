package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// PrepareJobResponse — ответ на создание job.
type PrepareJobResponse struct {
	ID           string `json:"id"`
	StagingToken string `json:"staging_token"`
}

// JobResponse — job из API.
type JobResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
}

// StateResponse — снапшот состояния job.
type StateResponse struct {
	State string `json:"state"`
}

// HistoryEventResponse — архивная запись истории job.
type HistoryEventResponse struct {
	Kind     string `json:"kind"`
	State    string `json:"state,omitempty"`
	Seq      int64  `json:"seq,omitempty"`
	Severity string `json:"severity,omitempty"`
	Text     string `json:"text,omitempty"`
	Time     string `json:"time"`
}

// LogEvent — запись лога из потока сообщений.
type LogEvent struct {
	Seq      int64  `json:"seq"`
	Severity string `json:"severity"`
	Text     string `json:"text"`
	Time     string `json:"time"`
}

// Message — элемент потока сообщений: запись лога или состояние.
type Message struct {
	Log   *LogEvent `json:"log,omitempty"`
	State string    `json:"state,omitempty"`
}

// --- Request types ---

// PrepareJobRequest — создание job.
type PrepareJobRequest struct {
	Name     string          `json:"name"`
	Pipeline json.RawMessage `json:"pipeline,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Conductor API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// streamClient без таймаута: потоковые endpoints живут
	// до финального состояния job.
	streamClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
	}
}

// --- Jobs ---

// PrepareJob создаёт новый job.
func (c *Client) PrepareJob(req PrepareJobRequest) (*PrepareJobResponse, error) {
	var prep PrepareJobResponse
	err := c.post("/api/v1/jobs", req, &prep)
	return &prep, err
}

// ListJobs возвращает все jobs.
func (c *Client) ListJobs() ([]JobResponse, error) {
	var all []JobResponse
	err := c.list("/api/v1/jobs", &all)
	return all, err
}

// GetJob возвращает job по ID.
func (c *Client) GetJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get("/api/v1/jobs/"+id, &job)
	return &job, err
}

// RunJob запускает выполнение job.
func (c *Client) RunJob(id string) (*StateResponse, error) {
	var state StateResponse
	err := c.post("/api/v1/jobs/"+id+"/run", nil, &state)
	return &state, err
}

// GetState возвращает снапшот состояния job.
func (c *Client) GetState(id string) (*StateResponse, error) {
	var state StateResponse
	err := c.get("/api/v1/jobs/"+id+"/state", &state)
	return &state, err
}

// CancelJob запрашивает отмену job.
func (c *Client) CancelJob(id string) (*StateResponse, error) {
	var state StateResponse
	err := c.post("/api/v1/jobs/"+id+"/cancel", nil, &state)
	return &state, err
}

// History возвращает архивную историю job.
func (c *Client) History(id string) ([]HistoryEventResponse, error) {
	var events []HistoryEventResponse
	err := c.list("/api/v1/jobs/"+id+"/history", &events)
	return events, err
}

// --- Streams ---

// WatchState читает NDJSON-поток состояний job, вызывая fn для каждой
// строки. Возвращается после закрытия потока сервером (финальное
// состояние) или первой ошибки fn.
func (c *Client) WatchState(id string, fn func(state string) error) error {
	return c.stream("/api/v1/jobs/"+id+"/state/stream", func(dec *json.Decoder) error {
		var line StateResponse
		if err := dec.Decode(&line); err != nil {
			return err
		}
		return fn(line.State)
	})
}

// WatchMessages читает NDJSON-поток сообщений job.
func (c *Client) WatchMessages(id string, fn func(msg Message) error) error {
	return c.stream("/api/v1/jobs/"+id+"/messages", func(dec *json.Decoder) error {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			return err
		}
		return fn(msg)
	})
}

// stream выполняет GET и прогоняет тело через декодер до EOF.
func (c *Client) stream(path string, decode func(dec *json.Decoder) error) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	dec := json.NewDecoder(resp.Body)
	for {
		err := decode(dec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
