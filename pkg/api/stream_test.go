package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rubiojr/glimpse/pkg/core"
)

func wsDial(t *testing.T, ts *httptest.Server, rawQuery string) (*websocket.Conn, StreamMessage) {
	t.Helper()
	u, _ := url.Parse(ts.URL)
	u.Scheme = "ws"
	u.Path = "/api/stream"
	u.RawQuery = rawQuery

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	msg := readMessage(t, conn)
	if msg.Type != streamInit {
		t.Fatalf("expected init message, got %q", msg.Type)
	}
	return conn, msg
}

func readMessage(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func askNext(t *testing.T, conn *websocket.Conn, payload string) StreamMessage {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}
	return readMessage(t, conn)
}

func streamQuery() string {
	v := url.Values{}
	v.Set("platform", "twitter / twitter")
	v.Set("terms", "vaccine")
	v.Set("startDate", "2021-01-01")
	v.Set("endDate", "2021-01-31")
	return v.Encode()
}

func TestStreamOnePagePerNext(t *testing.T) {
	ts, mock := setupTestAPIServer(t)
	conn, init := wsDial(t, ts, streamQuery())
	if init.Message != "twitter / twitter" {
		t.Errorf("init message = %q", init.Message)
	}

	first := askNext(t, conn, "next")
	if first.Type != streamPage || first.Page != 1 || len(first.Rows) != 2 {
		t.Fatalf("unexpected first page %+v", first)
	}
	if mock.lastQuery.Terms != "vaccine" {
		t.Errorf("terms = %q", mock.lastQuery.Terms)
	}

	second := askNext(t, conn, `{"type": "next"}`)
	if second.Type != streamPage || second.Page != 2 || second.Rows[0].ID != "3" {
		t.Fatalf("unexpected second page %+v", second)
	}

	done := askNext(t, conn, "next")
	if done.Type != streamDone || done.Page != 2 {
		t.Errorf("unexpected final message %+v", done)
	}
}

func TestStreamRejectsUnknownMessages(t *testing.T) {
	ts, _ := setupTestAPIServer(t)
	conn, _ := wsDial(t, ts, streamQuery())

	if msg := askNext(t, conn, "more please"); msg.Type != streamError {
		t.Errorf("expected an error message, got %+v", msg)
	}
	// the walker did not move
	if msg := askNext(t, conn, "next"); msg.Type != streamPage || msg.Page != 1 {
		t.Errorf("unexpected page %+v", msg)
	}
}

func TestStreamReportsPageErrors(t *testing.T) {
	ts, mock := setupTestAPIServer(t)
	mock.failAt = 1
	mock.failErr = &core.UpstreamError{Provider: "twitter/twitter", StatusCode: 500}

	conn, _ := wsDial(t, ts, streamQuery())
	if msg := askNext(t, conn, "next"); msg.Type != streamPage {
		t.Fatalf("unexpected first message %+v", msg)
	}
	if msg := askNext(t, conn, "next"); msg.Type != streamError || msg.Message == "" {
		t.Errorf("expected an error message, got %+v", msg)
	}
}

func TestStreamBadRequest(t *testing.T) {
	ts, _ := setupTestAPIServer(t)

	v := url.Values{}
	v.Set("platform", "twitter / twitter")
	v.Set("startDate", "not a date")
	resp, err := http.Get(ts.URL + "/api/stream?" + v.Encode())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStreamUnknownProvider(t *testing.T) {
	ts, _ := setupTestAPIServer(t)

	u, _ := url.Parse(ts.URL)
	u.Scheme = "ws"
	u.Path = "/api/stream"
	v, _ := url.ParseQuery(streamQuery())
	v.Set("platform", "reddit / pushshift")
	u.RawQuery = v.Encode()

	_, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected handshake response %v", resp)
	}
}
