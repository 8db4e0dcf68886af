package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id         string
	employeeID string
	messages   [][]byte
	mu         sync.Mutex
	closed     bool
}

func newMockClient(id, employeeID string) *mockClient {
	return &mockClient{
		id:         id,
		employeeID: employeeID,
		messages:   make([][]byte, 0),
	}
}

func (m *mockClient) ID() string {
	return m.id
}

func (m *mockClient) EmployeeID() string {
	return m.employeeID
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	client1 := newMockClient("client-1", "emp-1")
	client2 := newMockClient("client-2", "emp-1")
	client3 := newMockClient("client-3", "emp-2")

	// Register clients
	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	// Verify counts
	assert.Equal(t, 2, hub.ClientCount("emp-1"))
	assert.Equal(t, 1, hub.ClientCount("emp-2"))
	assert.Equal(t, 0, hub.ClientCount("nobody"))

	// Unregister one of emp-1's clients
	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount("emp-1"))

	// Unregister remaining clients
	hub.Unregister(client2)
	hub.Unregister(client3)
	assert.Equal(t, 0, hub.ClientCount("emp-1"))
	assert.Equal(t, 0, hub.ClientCount("emp-2"))
}

func TestHub_Broadcast_EmployeeIsolation(t *testing.T) {
	hub := NewHub()

	// Two sessions for emp-1
	client1a := newMockClient("client-1a", "emp-1")
	client1b := newMockClient("client-1b", "emp-1")

	// One session for emp-2
	client2 := newMockClient("client-2", "emp-2")

	hub.Register(client1a)
	hub.Register(client1b)
	hub.Register(client2)

	// Broadcast to emp-1
	evt := TimesheetApproved(map[string]interface{}{"id": "TMST00000001"})
	hub.Broadcast("emp-1", evt)

	// Give goroutines time to process
	time.Sleep(10 * time.Millisecond)

	// Both of emp-1's sessions should receive the message
	msgs1a := client1a.GetMessages()
	msgs1b := client1b.GetMessages()
	assert.Len(t, msgs1a, 1, "client1a should receive 1 message")
	assert.Len(t, msgs1b, 1, "client1b should receive 1 message")

	// emp-2's session should NOT receive the message
	msgs2 := client2.GetMessages()
	assert.Len(t, msgs2, 0, "client2 should not receive another employee's event")
}

func TestHub_Broadcast_MultipleFanOut(t *testing.T) {
	hub := NewHub()

	// Create multiple sessions for the same employee
	clients := make([]*mockClient, 5)
	for i := 0; i < 5; i++ {
		clients[i] = newMockClient("client-"+string(rune('a'+i)), "emp-1")
		hub.Register(clients[i])
	}

	// Broadcast event
	evt := TimesheetUpdated(map[string]interface{}{"id": "TMST00000001"})
	hub.Broadcast("emp-1", evt)

	// Give goroutines time to process
	time.Sleep(10 * time.Millisecond)

	// All sessions should receive the message
	for i, c := range clients {
		msgs := c.GetMessages()
		assert.Len(t, msgs, 1, "client %d should receive message", i)
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	clientCount := 50

	// Concurrently register clients across five employees
	clients := make([]*mockClient, clientCount)
	for i := 0; i < clientCount; i++ {
		clients[i] = newMockClient(fmt.Sprintf("client-%d", i), fmt.Sprintf("emp-%d", i%5))
	}

	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}

	wg.Wait()

	// Verify the total is correct (10 per employee, 5 employees)
	total := 0
	for e := 0; e < 5; e++ {
		total += hub.ClientCount(fmt.Sprintf("emp-%d", e))
	}
	assert.Equal(t, clientCount, total)

	// Concurrently broadcast and unregister
	for i := 0; i < clientCount; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			evt := TimesheetSubmitted(map[string]interface{}{"id": idx})
			hub.Broadcast(fmt.Sprintf("emp-%d", idx%5), evt)
		}(i)
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}

	wg.Wait()

	// After unregistering all, counts should be 0
	for e := 0; e < 5; e++ {
		assert.Equal(t, 0, hub.ClientCount(fmt.Sprintf("emp-%d", e)))
	}
}

func TestHub_UnregisterNonexistent(t *testing.T) {
	hub := NewHub()

	client := newMockClient("client-1", "emp-1")

	// Should not panic when unregistering a client that was never registered
	require.NotPanics(t, func() {
		hub.Unregister(client)
	})
}

func TestHub_BroadcastToUnknownEmployee(t *testing.T) {
	hub := NewHub()

	// Should not panic when broadcasting to an employee with no sessions
	require.NotPanics(t, func() {
		evt := TimesheetApproved(map[string]interface{}{"id": "TMST00000001"})
		hub.Broadcast("nobody", evt)
	})
}
