package websocket

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"
)

// Hub управляет всеми клиентами и доставкой push-сообщений.
// Клиент попадает и в реестр по userID, и в группы по ролям.
type Hub struct {
	clients     map[*Client]bool
	userClients map[uint64][]*Client
	roleClients map[string][]*Client
	broadcast   chan []byte
	Register    chan *Client
	unregister  chan *Client
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[uint64][]*Client),
		roleClients: make(map[string][]*Client),
		broadcast:   make(chan []byte),
		Register:    make(chan *Client),
		unregister:  make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
			for _, role := range client.Roles {
				group := normalizeRole(role)
				h.roleClients[group] = append(h.roleClients[group], client)
			}
			log.Printf("Клиент зарегистрирован: userID %d, роли %v", client.UserID, client.Roles)
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.userClients[client.UserID] = removeClient(h.userClients[client.UserID], client)
				if len(h.userClients[client.UserID]) == 0 {
					delete(h.userClients, client.UserID)
				}
				for _, role := range client.Roles {
					group := normalizeRole(role)
					h.roleClients[group] = removeClient(h.roleClients[group], client)
					if len(h.roleClients[group]) == 0 {
						delete(h.roleClients, group)
					}
				}
				log.Printf("Клиент отсоединен: userID %d", client.UserID)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			// Ветка мутирует реестр (снимает зависшие клиенты),
			// поэтому замок на запись.
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func removeClient(clients []*Client, target *Client) []*Client {
	for i, c := range clients {
		if c == target {
			return append(clients[:i], clients[i+1:]...)
		}
	}
	return clients
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func (h *Hub) marshalEnvelope(eventName string, payload interface{}) ([]byte, error) {
	envelope := Envelope{
		Event:     eventName,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("Ошибка сериализации сообщения для WebSocket: %v", err)
		return nil, err
	}
	return messageBytes, nil
}

// SendToUser отправляет событие во все активные соединения пользователя.
// Отсутствие соединений не является ошибкой: доставка best-effort.
func (h *Hub) SendToUser(userID uint64, eventName string, payload interface{}) error {
	messageBytes, err := h.marshalEnvelope(eventName, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.userClients[userID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- messageBytes:
			default:
			}
		}
	}
	return nil
}

// SendToRole отправляет событие всем подключенным пользователям с данной ролью.
func (h *Hub) SendToRole(roleGroup string, eventName string, payload interface{}) error {
	messageBytes, err := h.marshalEnvelope(eventName, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.roleClients[normalizeRole(roleGroup)]; ok {
		for _, client := range clients {
			select {
			case client.Send <- messageBytes:
			default:
			}
		}
	}
	return nil
}

// Broadcast отправляет событие всем подключенным клиентам.
func (h *Hub) Broadcast(eventName string, payload interface{}) error {
	messageBytes, err := h.marshalEnvelope(eventName, payload)
	if err != nil {
		return err
	}
	h.broadcast <- messageBytes
	return nil
}
