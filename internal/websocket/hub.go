package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	EmployeeID() string
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by employee.
// It is safe for concurrent use.
type Hub struct {
	// employees maps employee ID to a map of client ID to client
	employees map[string]map[string]ClientInterface
	mu        sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		employees: make(map[string]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its employee
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	employeeID := client.EmployeeID()
	clientID := client.ID()

	if h.employees[employeeID] == nil {
		h.employees[employeeID] = make(map[string]ClientInterface)
	}

	h.employees[employeeID][clientID] = client

	log.Debug().
		Str("employee_id", employeeID).
		Str("client_id", clientID).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	employeeID := client.EmployeeID()
	clientID := client.ID()

	if clients, ok := h.employees[employeeID]; ok {
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)

			// Clean up empty employee maps
			if len(clients) == 0 {
				delete(h.employees, employeeID)
			}

			log.Debug().
				Str("employee_id", employeeID).
				Str("client_id", clientID).
				Msg("WebSocket client unregistered")
		}
	}
}

// Broadcast sends an event to all clients connected for a specific employee
func (h *Hub) Broadcast(employeeID string, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("employee_id", employeeID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.employees[employeeID]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy clients to avoid holding lock during send
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	// Send to each client asynchronously
	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("employee_id", employeeID).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("employee_id", employeeID).
		Str("event_type", event.Type).
		Int("clients", len(clientsCopy)).
		Msg("Event broadcast")
}

// ClientCount returns the number of clients connected for an employee
func (h *Hub) ClientCount(employeeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.employees[employeeID])
}
