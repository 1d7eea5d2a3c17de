package domain

import (
	"fmt"
	"time"
)

// TransactionStatus статус транзакции
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSucceeded TransactionStatus = "succeeded"
	TransactionStatusCanceled  TransactionStatus = "canceled"
)

// Terminal reports whether the status is a final one.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusSucceeded || s == TransactionStatusCanceled
}

// Transaction представляет собой локальную запись о платеже.
//
// PaymentID is assigned by the provider at creation and is unique.
// PaymentUUID is the client-generated correlation key; it may be empty
// until the provider confirms it, and once set it never changes.
type Transaction struct {
	PaymentID    string            `json:"payment_id" db:"payment_id"`
	PaymentUUID  string            `json:"payment_uuid,omitempty" db:"payment_uuid"`
	TgID         int64             `json:"tg_id" db:"tg_id"`
	Subscription string            `json:"subscription" db:"subscription"`
	Status       TransactionStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// SubscriptionData входные данные для создания платежа
type SubscriptionData struct {
	UserID   int64
	Devices  int
	Duration int // days
	Price    float64
}

// Pack renders the subscription descriptor stored on the transaction.
func (d SubscriptionData) Pack() string {
	return fmt.Sprintf("devices=%d:duration=%d", d.Devices, d.Duration)
}
