package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"saral/services/gateway/internal/app"
)

func dialEvents(t *testing.T, g *testGateway, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(g.srv.URL, "http") + "/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEventsRequireSession(t *testing.T) {
	g := newTestGateway(t)
	wsURL := "ws" + strings.TrimPrefix(g.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("anonymous dial should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous dial response = %v", resp)
	}
}

func TestEventsStreamWorkspaceMessages(t *testing.T) {
	g := newTestGateway(t)
	out := g.login(t, userEmail, userPassword)
	conn := dialEvents(t, g, out.Token)

	ws, ok := g.app.Workspace(context.Background(), out.Token)
	if !ok {
		t.Fatalf("token did not resolve")
	}
	waitFor(t, func() bool { return g.hub.Clients(ws.ID()) == 1 })

	if resp, body := g.do(t, http.MethodPost, "/api/ask", out.Token, askRequest{Query: "naac"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("ask = %d (%s)", resp.StatusCode, body)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var types []string
	for len(types) < 2 {
		var ev app.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		types = append(types, ev.Type)
	}
	if types[0] != app.EventMessage || types[1] != app.EventMessage {
		t.Fatalf("event types = %v", types)
	}
}

func TestHubIsolatesWorkspaces(t *testing.T) {
	g := newTestGateway(t)
	first := g.login(t, officerEmail, officerPassword)
	second := g.login(t, userEmail, userPassword)
	conn := dialEvents(t, g, second.Token)

	ws, _ := g.app.Workspace(context.Background(), second.Token)
	waitFor(t, func() bool { return g.hub.Clients(ws.ID()) == 1 })

	if resp, _ := g.do(t, http.MethodPost, "/api/ask", first.Token, askRequest{Query: "nep"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("ask = %d", resp.StatusCode)
	}
	g.hub.Publish(ws.ID(), app.Event{Type: "marker"})

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev app.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != "marker" {
		t.Fatalf("received another workspace's event: %+v", ev)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	g := newTestGateway(t)
	out := g.login(t, userEmail, userPassword)
	conn := dialEvents(t, g, out.Token)
	ws, _ := g.app.Workspace(context.Background(), out.Token)
	waitFor(t, func() bool { return g.hub.Clients(ws.ID()) == 1 })

	g.hub.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the connection to close")
	}
	if g.hub.Clients(ws.ID()) != 0 {
		t.Fatalf("clients remain after close")
	}
}
