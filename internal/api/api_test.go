package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/jobs"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// engineFunc — адаптер функции в jobs.Engine.
type engineFunc func(ctx context.Context, pipeline json.RawMessage, options map[string]any) error

func (f engineFunc) Run(ctx context.Context, pipeline json.RawMessage, options map[string]any) error {
	return f(ctx, pipeline, options)
}

func okEngine() jobs.Engine {
	return engineFunc(func(context.Context, json.RawMessage, map[string]any) error { return nil })
}

// gateEngine блокирует выполнение до закрытия release.
type gateEngine struct {
	release chan struct{}
}

func newGateEngine() *gateEngine { return &gateEngine{release: make(chan struct{})} }

func (e *gateEngine) Run(ctx context.Context, _ json.RawMessage, _ map[string]any) error {
	select {
	case <-e.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestServer(t *testing.T, engine jobs.Engine) (*httptest.Server, *jobs.Service) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := jobs.New(jobs.Config{Engine: engine, Logger: logger})

	handler := NewHandler(Config{Service: service, Logger: logger})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, service
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = strings.NewReader("{}")
	}

	resp, err := http.Post(url, "application/json", reader)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if err := json.Unmarshal(wrapper.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	var wrapper struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return wrapper.Error.Code
}

func prepareJob(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()

	resp := postJSON(t, srv.URL+"/api/v1/jobs", PrepareJobRequest{Name: name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("prepare status = %d, want 201", resp.StatusCode)
	}
	var prep PrepareJobResponse
	decodeData(t, resp, &prep)
	if prep.ID == "" || prep.StagingToken == "" {
		t.Fatalf("prepare response incomplete: %+v", prep)
	}
	return prep.ID
}

func waitForState(t *testing.T, srv *httptest.Server, id, want string) {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/v1/jobs/" + id + "/state")
		if err != nil {
			t.Fatalf("GET state: %v", err)
		}
		var state StateResponse
		decodeData(t, resp, &state)
		if state.State == want {
			return
		}

		select {
		case <-deadline:
			t.Fatalf("state = %s, want %s", state.State, want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// --- Job Endpoint Tests ---

func TestPrepareRunAndState(t *testing.T) {
	srv, _ := newTestServer(t, okEngine())

	id := prepareJob(t, srv, "wordcount")

	resp := postJSON(t, srv.URL+"/api/v1/jobs/"+id+"/run", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	waitForState(t, srv, id, "DONE")
}

func TestPrepareJob_MissingName(t *testing.T) {
	srv, _ := newTestServer(t, okEngine())

	resp := postJSON(t, srv.URL+"/api/v1/jobs", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if code := decodeError(t, resp); code != "BAD_REQUEST" {
		t.Errorf("error code = %s, want BAD_REQUEST", code)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, okEngine())

	resp, err := http.Get(srv.URL + "/api/v1/jobs/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if code := decodeError(t, resp); code != "NOT_FOUND" {
		t.Errorf("error code = %s, want NOT_FOUND", code)
	}
}

func TestRunJob_Twice_Conflict(t *testing.T) {
	gate := newGateEngine()
	defer close(gate.release)
	srv, _ := newTestServer(t, gate)

	id := prepareJob(t, srv, "job")

	resp := postJSON(t, srv.URL+"/api/v1/jobs/"+id+"/run", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first run status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/v1/jobs/"+id+"/run", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second run status = %d, want 409", resp.StatusCode)
	}
	if code := decodeError(t, resp); code != "CONFLICT" {
		t.Errorf("error code = %s, want CONFLICT", code)
	}
}

func TestCancelJob(t *testing.T) {
	srv, _ := newTestServer(t, okEngine())

	id := prepareJob(t, srv, "job")

	resp := postJSON(t, srv.URL+"/api/v1/jobs/"+id+"/cancel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	var state StateResponse
	decodeData(t, resp, &state)
	if state.State != "CANCELLED" {
		t.Errorf("state = %s, want CANCELLED", state.State)
	}
}

func TestListJobs(t *testing.T) {
	srv, _ := newTestServer(t, okEngine())

	prepareJob(t, srv, "one")
	prepareJob(t, srv, "two")

	resp, err := http.Get(srv.URL + "/api/v1/jobs")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var all []JobResponse
	decodeData(t, resp, &all)
	if len(all) != 2 {
		t.Errorf("len = %d, want 2", len(all))
	}
}

func TestJobHistory_NotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, okEngine())

	id := prepareJob(t, srv, "job")

	resp, err := http.Get(srv.URL + "/api/v1/jobs/" + id + "/history")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

// --- Stream Endpoint Tests ---

func TestStreamJobState(t *testing.T) {
	gate := newGateEngine()
	srv, _ := newTestServer(t, gate)

	id := prepareJob(t, srv, "job")

	resp := postJSON(t, srv.URL+"/api/v1/jobs/"+id+"/run", nil)
	resp.Body.Close()

	streamResp, err := http.Get(srv.URL + "/api/v1/jobs/" + id + "/state/stream")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer streamResp.Body.Close()

	if got := streamResp.Header.Get("Content-Type"); got != "application/x-ndjson" {
		t.Errorf("content type = %q, want application/x-ndjson", got)
	}

	scanner := bufio.NewScanner(streamResp.Body)

	// First line is the replayed current state
	if !scanner.Scan() {
		t.Fatal("stream closed before the replayed state")
	}
	var first StateResponse
	if err := json.Unmarshal(scanner.Bytes(), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if first.State != "STARTING" {
		t.Errorf("first state = %s, want STARTING", first.State)
	}

	// Let the job finish, the stream must end with DONE
	close(gate.release)

	var last StateResponse
	for scanner.Scan() {
		if err := json.Unmarshal(scanner.Bytes(), &last); err != nil {
			t.Fatalf("decode line: %v", err)
		}
	}
	if last.State != "DONE" {
		t.Errorf("final state = %s, want DONE", last.State)
	}
}

func TestStreamJobMessages_SubscribeBeforeEvents(t *testing.T) {
	gate := newGateEngine()
	srv, _ := newTestServer(t, gate)

	id := prepareJob(t, srv, "job")

	// The GET must return as soon as the subscription is established,
	// even though the job has produced no log or state event yet.
	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Get(srv.URL + "/api/v1/jobs/" + id + "/messages")
		done <- result{resp, err}
	}()

	var streamResp *http.Response
	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("GET stream: %v", r.err)
		}
		streamResp = r.resp
	case <-time.After(5 * time.Second):
		t.Fatal("stream headers were not committed before the first event")
	}
	defer streamResp.Body.Close()

	if streamResp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", streamResp.StatusCode)
	}
	if got := streamResp.Header.Get("Content-Type"); got != "application/x-ndjson" {
		t.Errorf("content type = %q, want application/x-ndjson", got)
	}

	// Finish the job so the stream closes cleanly.
	resp := postJSON(t, srv.URL+"/api/v1/jobs/"+id+"/run", nil)
	resp.Body.Close()
	close(gate.release)

	if _, err := io.Copy(io.Discard, streamResp.Body); err != nil {
		t.Fatalf("drain stream: %v", err)
	}
}

func TestStreamJobMessages_AfterFailure(t *testing.T) {
	failing := engineFunc(func(context.Context, json.RawMessage, map[string]any) error {
		return errors.New("exploded")
	})
	srv, _ := newTestServer(t, failing)

	id := prepareJob(t, srv, "job")
	resp := postJSON(t, srv.URL+"/api/v1/jobs/"+id+"/run", nil)
	resp.Body.Close()
	waitForState(t, srv, id, "FAILED")

	streamResp, err := http.Get(srv.URL + "/api/v1/jobs/" + id + "/messages")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer streamResp.Body.Close()

	var messages []domain.Message
	scanner := bufio.NewScanner(streamResp.Body)
	for scanner.Scan() {
		var msg domain.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		messages = append(messages, msg)
	}

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want cached log and the replayed terminal state", len(messages))
	}
	if messages[0].Log == nil || !strings.Contains(messages[0].Log.Text, "exploded") {
		t.Errorf("first message = %+v, want the failure log", messages[0])
	}
	if !messages[1].IsState() || messages[1].State != domain.JobStateFailed {
		t.Errorf("second message = %+v, want replayed state FAILED", messages[1])
	}
}

func TestStreamJobMessages_LogsAndTerminalState(t *testing.T) {
	chatty := engineFunc(func(ctx context.Context, _ json.RawMessage, _ map[string]any) error {
		telemetry.FromContext(ctx).Info("working hard")
		return nil
	})
	srv, _ := newTestServer(t, chatty)

	id := prepareJob(t, srv, "job")

	streamResp, err := http.Get(srv.URL + "/api/v1/jobs/" + id + "/messages")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer streamResp.Body.Close()

	resp := postJSON(t, srv.URL+"/api/v1/jobs/"+id+"/run", nil)
	resp.Body.Close()

	var sawLog bool
	var last domain.Message
	scanner := bufio.NewScanner(streamResp.Body)
	for scanner.Scan() {
		var msg domain.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		if msg.Log != nil && strings.Contains(msg.Log.Text, "working hard") {
			sawLog = true
		}
		last = msg
	}

	if !sawLog {
		t.Error("engine log did not reach the stream")
	}
	if !last.IsState() || last.State != domain.JobStateDone {
		t.Errorf("final message = %+v, want state DONE", last)
	}
}
