package textsync

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"codeshare-server/core"
	"codeshare-server/presence/memorystore"
	"codeshare-server/relay"
	"codeshare-server/rooms"
)

// recordingEmitter keeps the text of every broadcast edit per recipient, in
// delivery order.
type recordingEmitter struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (e *recordingEmitter) Emit(connectionID, event string, payload any) {
	op, ok := payload.(core.EditOperation)
	if !ok {
		return
	}
	e.mu.Lock()
	e.sent[connectionID] = append(e.sent[connectionID], op.Text)
	e.mu.Unlock()
}

func (e *recordingEmitter) deliveriesTo(connectionID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sent[connectionID]
}

func newTestEngine(t *testing.T) (*Engine, *rooms.Registry, string) {
	t.Helper()
	registry := rooms.NewRegistry(memorystore.NewPresenceStore())
	roomID, err := registry.CreateRoom("conn-1", "alice")
	if err != nil {
		t.Fatalf("CreateRoom() failed: %v", err)
	}
	return NewEngine(registry), registry, roomID
}

func TestApplyEdit(t *testing.T) {
	engine, _, roomID := newTestEngine(t)

	gotRoom, buffer, err := engine.ApplyEdit("conn-1", core.EditOperation{
		Text:      "package main",
		StartLine: 1, StartColumn: 1,
		EndLine: 1, EndColumn: 1,
	})
	if err != nil {
		t.Fatalf("ApplyEdit() failed: %v", err)
	}
	if gotRoom != roomID {
		t.Errorf("room = %q, want %q", gotRoom, roomID)
	}
	if buffer != "package main" {
		t.Errorf("buffer = %q, want %q", buffer, "package main")
	}
}

func TestApplyEdit_OrphanConnection(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, _, err := engine.ApplyEdit("stranger", core.EditOperation{Text: "x"})
	if err != core.ErrNotInRoom {
		t.Errorf("ApplyEdit() = %v, want ErrNotInRoom", err)
	}
}

func TestSnapshotOf(t *testing.T) {
	engine, _, roomID := newTestEngine(t)

	buffer, err := engine.SnapshotOf(roomID)
	if err != nil {
		t.Fatalf("SnapshotOf() failed: %v", err)
	}
	if buffer != "" {
		t.Errorf("new room snapshot = %q, want empty string", buffer)
	}

	engine.ApplyEdit("conn-1", core.EditOperation{
		Text:      "hello",
		StartLine: 1, StartColumn: 1,
		EndLine: 1, EndColumn: 1,
	})

	buffer, _ = engine.SnapshotOf(roomID)
	if buffer != "hello" {
		t.Errorf("snapshot = %q, want %q", buffer, "hello")
	}
}

func TestSnapshotOf_UnknownRoom(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if _, err := engine.SnapshotOf("nosuch"); err != core.ErrRoomNotFound {
		t.Errorf("SnapshotOf() = %v, want ErrRoomNotFound", err)
	}
}

func TestConcurrentEditsSerialize(t *testing.T) {
	engine, registry, roomID := newTestEngine(t)
	registry.JoinRoom("conn-2", roomID, "bob")

	// Both writers append a marker at line 1 column 1 concurrently. Each
	// edit must land exactly once, in some total order.
	const perWriter = 50
	var wg sync.WaitGroup
	for _, conn := range []string{"conn-1", "conn-2"} {
		wg.Add(1)
		go func(connID string) {
			defer wg.Done()
			marker := string(connID[len(connID)-1])
			for i := 0; i < perWriter; i++ {
				_, _, err := engine.ApplyEdit(connID, core.EditOperation{
					Text:      marker,
					StartLine: 1, StartColumn: 1,
					EndLine: 1, EndColumn: 1,
				})
				if err != nil {
					t.Errorf("ApplyEdit() failed: %v", err)
					return
				}
			}
		}(conn)
	}
	wg.Wait()

	buffer, err := engine.SnapshotOf(roomID)
	if err != nil {
		t.Fatalf("SnapshotOf() failed: %v", err)
	}
	if len(buffer) != 2*perWriter {
		t.Errorf("buffer length = %d, want %d (every edit applied exactly once)", len(buffer), 2*perWriter)
	}
	if got := strings.Count(buffer, "1"); got != perWriter {
		t.Errorf("writer 1 markers = %d, want %d", got, perWriter)
	}
	if got := strings.Count(buffer, "2"); got != perWriter {
		t.Errorf("writer 2 markers = %d, want %d", got, perWriter)
	}

	// A latecomer's initial sync observes the same converged buffer.
	if again, _ := engine.SnapshotOf(roomID); again != buffer {
		t.Error("snapshot diverged between reads of an idle room")
	}
}

func TestBroadcastOrderMatchesApplyOrder(t *testing.T) {
	registry := rooms.NewRegistry(memorystore.NewPresenceStore())
	engine := NewEngine(registry)
	emitter := &recordingEmitter{sent: make(map[string][]string)}
	fanout := relay.NewFanout(registry, emitter)
	engine.SetAppliedListener(func(roomID, senderID string, op core.EditOperation) {
		fanout.ToRoomExcept(roomID, senderID, relay.EventEditApplied, op)
	})

	roomID, err := registry.CreateRoom("conn-a", "alice")
	if err != nil {
		t.Fatalf("CreateRoom() failed: %v", err)
	}
	registry.JoinRoom("conn-b", roomID, "bob")
	registry.JoinRoom("conn-obs", roomID, "carol")

	// Two senders race tagged one-line prepends. Each prepend pushes its tag
	// to line 1, so the final buffer records the apply order newest-first,
	// and the observer's deliveries must replay that exact order.
	const perSender = 200
	var wg sync.WaitGroup
	for _, conn := range []string{"conn-a", "conn-b"} {
		wg.Add(1)
		go func(connID string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, _, err := engine.ApplyEdit(connID, core.EditOperation{
					Text:      fmt.Sprintf("%s-%03d\n", connID, i),
					StartLine: 1, StartColumn: 1,
					EndLine: 1, EndColumn: 1,
				})
				if err != nil {
					t.Errorf("ApplyEdit() failed: %v", err)
					return
				}
			}
		}(conn)
	}
	wg.Wait()

	buffer, err := engine.SnapshotOf(roomID)
	if err != nil {
		t.Fatalf("SnapshotOf() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buffer, "\n"), "\n")
	applied := make([]string, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		applied = append(applied, lines[i]+"\n")
	}

	observed := emitter.deliveriesTo("conn-obs")
	if len(observed) != len(applied) {
		t.Fatalf("observer received %d broadcasts, want %d", len(observed), len(applied))
	}
	for i := range applied {
		if observed[i] != applied[i] {
			t.Fatalf("delivery order diverged from apply order at %d: applied %q, delivered %q", i, applied[i], observed[i])
		}
	}
}

func TestEditsToDifferentRoomsDoNotInterfere(t *testing.T) {
	registry := rooms.NewRegistry(memorystore.NewPresenceStore())
	engine := NewEngine(registry)

	roomA, _ := registry.CreateRoom("conn-a", "alice")
	roomB, _ := registry.CreateRoom("conn-b", "bob")

	engine.ApplyEdit("conn-a", core.EditOperation{
		Text:      "alpha",
		StartLine: 1, StartColumn: 1,
		EndLine: 1, EndColumn: 1,
	})
	engine.ApplyEdit("conn-b", core.EditOperation{
		Text:      "beta",
		StartLine: 1, StartColumn: 1,
		EndLine: 1, EndColumn: 1,
	})

	if buffer, _ := engine.SnapshotOf(roomA); buffer != "alpha" {
		t.Errorf("room A buffer = %q, want %q", buffer, "alpha")
	}
	if buffer, _ := engine.SnapshotOf(roomB); buffer != "beta" {
		t.Errorf("room B buffer = %q, want %q", buffer, "beta")
	}
}
