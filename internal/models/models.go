// Package models holds the response bodies of the HTTP API.
package models

import (
	"time"

	"hbank/internal/deposit"
	"hbank/internal/money"
	"hbank/internal/store"
	"hbank/internal/withdrawal"
)

type Health struct {
	Status string `json:"status"`
}

type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Quote previews a deposit or a withdrawal at the current rate without
// creating it.
type Quote struct {
	Requested        money.Money `json:"requested"`
	Destination      money.Money `json:"destination"`
	Rate             money.Rate  `json:"rate"`
	ExpiresInSeconds int64       `json:"expiresInSeconds"`
}

type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type RateHistory struct {
	Rates []money.Rate `json:"rates"`
	Page
}

type DepositList struct {
	AccountID string            `json:"accountId"`
	Deposits  []deposit.Deposit `json:"deposits"`
	Page
}

type WithdrawalList struct {
	AccountID   string                  `json:"accountId"`
	Withdrawals []withdrawal.Withdrawal `json:"withdrawals"`
	Page
}

type AuditLog struct {
	Entries []store.AuditEntry `json:"entries"`
	Page
}
