package domain

import "time"

// TransactionType represents the direction of a ledger record.
type TransactionType string

const (
	TransactionDebit      TransactionType = "debit"
	TransactionCredit     TransactionType = "credit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// WithdrawalStatus is the sub-status of a withdrawal transaction.
type WithdrawalStatus string

const (
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalConfirmed  WithdrawalStatus = "confirmed"
	WithdrawalRejected   WithdrawalStatus = "rejected"
)

// TransactionMeta carries withdrawal bookkeeping.
type TransactionMeta struct {
	Status    WithdrawalStatus `json:"status"`
	Fee       int64            `json:"fee"`
	Total     int64            `json:"total"`
	AccountID string           `json:"account_id"`
}

// Transaction is an append-only ledger record.
type Transaction struct {
	ID        string
	UserID    string
	OrderID   string
	Amount    int64
	Currency  string
	Type      TransactionType
	Note      string
	Reference string
	Meta      *TransactionMeta
	CreatedAt time.Time
}

// Card is a reusable card authorization stored for a user.
type Card struct {
	ID                string
	UserID            string
	Email             string
	AuthorizationCode string
	Signature         string
	Last4             string
	Brand             string
	ExpMonth          string
	ExpYear           string
	Reusable          bool
	CreatedAt         time.Time
}

// Account is a bank account a driver withdraws to.
type Account struct {
	ID            string
	UserID        string
	AccountName   string
	AccountNumber string
	BankCode      string
	RecipientCode string
}
