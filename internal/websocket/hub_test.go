package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcastDepositOnlyReachesAccount(t *testing.T) {
	hub := NewHub()
	mine := &Client{send: make(chan []byte, 1)}
	other := &Client{send: make(chan []byte, 1)}
	hub.Register(AccountTopic("0.0.1"), mine)
	hub.Register(AccountTopic("0.0.2"), other)

	hub.BroadcastDeposit("0.0.1", DepositUpdate{DepositID: "dep-1", Status: "scheduled"})

	select {
	case payload := <-mine.send:
		var update DepositUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if update.Type != "deposit" || update.DepositID != "dep-1" {
			t.Fatalf("unexpected update: %#v", update)
		}
	default:
		t.Fatalf("expected message for subscribed account")
	}
	select {
	case <-other.send:
		t.Fatalf("unexpected message for other account")
	default:
	}
}

func TestHubBroadcastWithdrawalSharesAccountTopic(t *testing.T) {
	hub := NewHub()
	client := &Client{send: make(chan []byte, 2)}
	hub.Register(AccountTopic("0.0.1"), client)

	hub.BroadcastDeposit("0.0.1", DepositUpdate{DepositID: "dep-1", Status: "pending"})
	hub.BroadcastWithdrawal("0.0.1", WithdrawalUpdate{WithdrawalID: "wd-1", Status: "pending", RequestedAmount: "5.000"})

	<-client.send
	var update WithdrawalUpdate
	if err := json.Unmarshal(<-client.send, &update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.Type != "withdrawal" || update.WithdrawalID != "wd-1" || update.RequestedAmount != "5.000" {
		t.Fatalf("unexpected update: %#v", update)
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	client := &Client{send: make(chan []byte, 1)}
	hub.Register(ratesTopic, client)

	hub.BroadcastRate(RateUpdate{Value: 1.0})
	hub.BroadcastRate(RateUpdate{Value: 1.1})

	if len(client.send) != 1 {
		t.Fatalf("expected one buffered message, got %d", len(client.send))
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	client := &Client{send: make(chan []byte, 1)}
	hub.Register(ratesTopic, client)
	hub.Unregister(ratesTopic, client)
	hub.Unregister("missing", client)

	if hub.Subscribers(ratesTopic) != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestServeWSReceivesRateUpdates(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, hub, r.URL.Query().Get("account"))
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?account=0.0.7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(AccountTopic("0.0.7")) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastRate(RateUpdate{Value: 1.005, SequenceNumber: "seq-1"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var update RateUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.Type != "rate" || update.SequenceNumber != "seq-1" {
		t.Fatalf("unexpected update: %#v", update)
	}
}
