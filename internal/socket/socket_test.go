package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bookhaven/haven/internal/models"
	"github.com/gorilla/websocket"
)

// broadcastServer is a minimal stand-in for the push endpoint. It records
// inbound envelopes and lets tests push events back to the client.
type broadcastServer struct {
	server   *httptest.Server
	conns    chan *websocket.Conn
	received chan envelope
}

func newBroadcastServer(t *testing.T) *broadcastServer {
	t.Helper()

	bs := &broadcastServer{
		conns:    make(chan *websocket.Conn, 1),
		received: make(chan envelope, 16),
	}

	upgrader := websocket.Upgrader{}
	bs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		bs.conns <- conn
		for {
			var msg envelope
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			bs.received <- msg
		}
	}))
	t.Cleanup(bs.server.Close)
	return bs
}

func (bs *broadcastServer) url() string {
	return "ws" + strings.TrimPrefix(bs.server.URL, "http")
}

func (bs *broadcastServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-bs.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client connection")
		return nil
	}
}

func (bs *broadcastServer) waitMessage(t *testing.T) envelope {
	t.Helper()
	select {
	case msg := <-bs.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client message")
		return envelope{}
	}
}

func (bs *broadcastServer) pushComment(t *testing.T, conn *websocket.Conn, comment models.Comment) {
	t.Helper()
	data, err := json.Marshal(comment)
	if err != nil {
		t.Fatalf("failed to marshal comment: %v", err)
	}
	if err := conn.WriteJSON(envelope{Event: EventNewComment, Data: data}); err != nil {
		t.Fatalf("failed to push comment: %v", err)
	}
}

func TestClientRooms(t *testing.T) {
	t.Run("Join Sends Room Message", func(t *testing.T) {
		bs := newBroadcastServer(t)
		client := NewClient(bs.url(), nil)

		if err := client.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		defer client.Close()
		bs.waitConn(t)

		if err := client.Join("b1", func(models.Comment) {}); err != nil {
			t.Fatalf("join failed: %v", err)
		}

		msg := bs.waitMessage(t)
		if msg.Event != EventJoinRoom {
			t.Errorf("expected %s, got %s", EventJoinRoom, msg.Event)
		}
		var bookID string
		if err := json.Unmarshal(msg.Data, &bookID); err != nil || bookID != "b1" {
			t.Errorf("expected room b1, got %s (%v)", msg.Data, err)
		}
	})

	t.Run("Rejoin Replaces Handler Without Resend", func(t *testing.T) {
		bs := newBroadcastServer(t)
		client := NewClient(bs.url(), nil)

		if err := client.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		defer client.Close()
		conn := bs.waitConn(t)

		first := make(chan models.Comment, 1)
		second := make(chan models.Comment, 1)
		if err := client.Join("b1", func(c models.Comment) { first <- c }); err != nil {
			t.Fatalf("join failed: %v", err)
		}
		bs.waitMessage(t)

		if err := client.Join("b1", func(c models.Comment) { second <- c }); err != nil {
			t.Fatalf("rejoin failed: %v", err)
		}

		bs.pushComment(t, conn, models.Comment{ID: "c1", BookID: "b1", Text: "hello"})

		select {
		case <-second:
		case <-first:
			t.Error("replaced handler should not receive events")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for dispatched comment")
		}

		select {
		case msg := <-bs.received:
			t.Errorf("rejoin should not resend, got %s", msg.Event)
		default:
		}
	})

	t.Run("Leave Detaches Handler", func(t *testing.T) {
		bs := newBroadcastServer(t)
		client := NewClient(bs.url(), nil)

		if err := client.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		defer client.Close()
		conn := bs.waitConn(t)

		got := make(chan models.Comment, 1)
		if err := client.Join("b1", func(c models.Comment) { got <- c }); err != nil {
			t.Fatalf("join failed: %v", err)
		}
		bs.waitMessage(t)

		if err := client.Leave("b1"); err != nil {
			t.Fatalf("leave failed: %v", err)
		}
		msg := bs.waitMessage(t)
		if msg.Event != EventLeaveRoom {
			t.Errorf("expected %s, got %s", EventLeaveRoom, msg.Event)
		}

		bs.pushComment(t, conn, models.Comment{ID: "c1", BookID: "b1", Text: "late"})
		select {
		case <-got:
			t.Error("detached handler should not receive events")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("Leave Unknown Room Is No-Op", func(t *testing.T) {
		client := NewClient("ws://unused", nil)
		if err := client.Leave("b1"); err != nil {
			t.Errorf("leaving an unheld room should be silent: %v", err)
		}
	})
}

func TestClientDispatch(t *testing.T) {
	t.Run("Routes Comments By Book", func(t *testing.T) {
		bs := newBroadcastServer(t)
		client := NewClient(bs.url(), nil)

		if err := client.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		defer client.Close()
		conn := bs.waitConn(t)

		got := make(chan models.Comment, 2)
		if err := client.Join("b1", func(c models.Comment) { got <- c }); err != nil {
			t.Fatalf("join failed: %v", err)
		}
		bs.waitMessage(t)

		bs.pushComment(t, conn, models.Comment{ID: "other", BookID: "b2", Text: "elsewhere"})
		bs.pushComment(t, conn, models.Comment{ID: "mine", BookID: "b1", Text: "here"})

		select {
		case comment := <-got:
			if comment.ID != "mine" {
				t.Errorf("expected comment for joined room, got %s", comment.ID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for dispatched comment")
		}
	})

	t.Run("Ignores Unknown Events", func(t *testing.T) {
		bs := newBroadcastServer(t)
		client := NewClient(bs.url(), nil)

		if err := client.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		defer client.Close()
		conn := bs.waitConn(t)

		got := make(chan models.Comment, 1)
		if err := client.Join("b1", func(c models.Comment) { got <- c }); err != nil {
			t.Fatalf("join failed: %v", err)
		}
		bs.waitMessage(t)

		if err := conn.WriteJSON(envelope{Event: "presence", Data: json.RawMessage(`{}`)}); err != nil {
			t.Fatalf("failed to write event: %v", err)
		}
		bs.pushComment(t, conn, models.Comment{ID: "c1", BookID: "b1", Text: "after"})

		select {
		case comment := <-got:
			if comment.ID != "c1" {
				t.Errorf("unexpected comment %s", comment.ID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for dispatched comment")
		}
	})
}

func TestClientLifecycle(t *testing.T) {
	t.Run("Send Without Connection", func(t *testing.T) {
		client := NewClient("ws://unused", nil)
		if err := client.Join("b1", func(models.Comment) {}); err == nil {
			t.Error("join without a connection should fail")
		}
	})

	t.Run("Disconnect Invokes Callback Once", func(t *testing.T) {
		bs := newBroadcastServer(t)
		client := NewClient(bs.url(), nil)

		dropped := make(chan error, 1)
		client.OnDisconnect(func(err error) { dropped <- err })

		if err := client.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		conn := bs.waitConn(t)

		conn.Close()

		select {
		case err := <-dropped:
			if err == nil {
				t.Error("disconnect callback should carry the read error")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for disconnect callback")
		}
	})

	t.Run("Close Suppresses Disconnect Callback", func(t *testing.T) {
		bs := newBroadcastServer(t)
		client := NewClient(bs.url(), nil)

		dropped := make(chan error, 1)
		client.OnDisconnect(func(err error) { dropped <- err })

		if err := client.Connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		bs.waitConn(t)

		if err := client.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		select {
		case <-dropped:
			t.Error("deliberate close should not look like a disconnect")
		case <-time.After(200 * time.Millisecond):
		}
	})
}
