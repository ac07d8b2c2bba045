package websocket

import (
	"encoding/json"
	"sync"
	"time"
)

const ratesTopic = "rates"

// AccountTopic is the topic that carries deposit and withdrawal updates for
// one account.
func AccountTopic(accountID string) string {
	return "account:" + accountID
}

type RateUpdate struct {
	Type           string    `json:"type"`
	Value          float64   `json:"value"`
	SequenceNumber string    `json:"sequenceNumber"`
	PublishedAt    time.Time `json:"timestamp"`
	ValidUntil     time.Time `json:"validUntil"`
}

type DepositUpdate struct {
	Type              string `json:"type"`
	DepositID         string `json:"depositId"`
	Status            string `json:"status"`
	RequestedAmount   string `json:"requestedAmount"`
	DestinationAmount string `json:"destinationAmount"`
	ScheduleID        string `json:"scheduleId,omitempty"`
	TransactionID     string `json:"transactionId,omitempty"`
}

type WithdrawalUpdate struct {
	Type              string `json:"type"`
	WithdrawalID      string `json:"withdrawalId"`
	Status            string `json:"status"`
	RequestedAmount   string `json:"requestedAmount"`
	DestinationAmount string `json:"destinationAmount"`
	ScheduleID        string `json:"scheduleId,omitempty"`
	TransactionID     string `json:"transactionId,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) Unregister(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		return
	}
	delete(h.clients[topic], client)
	if len(h.clients[topic]) == 0 {
		delete(h.clients, topic)
	}
}

// Subscribers returns the number of clients listening on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) BroadcastRate(update RateUpdate) {
	update.Type = "rate"
	h.publish(ratesTopic, update)
}

func (h *Hub) BroadcastDeposit(accountID string, update DepositUpdate) {
	update.Type = "deposit"
	h.publish(AccountTopic(accountID), update)
}

func (h *Hub) BroadcastWithdrawal(accountID string, update WithdrawalUpdate) {
	update.Type = "withdrawal"
	h.publish(AccountTopic(accountID), update)
}

// publish never blocks; a client whose buffer is full misses the message.
func (h *Hub) publish(topic string, message any) {
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
