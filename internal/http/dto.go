package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gastos/internal/core"
	"gastos/internal/services"
)

type (
	userResponse struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"createdAt"`
	}

	sessionResponse struct {
		User  userResponse `json:"user"`
		Token string       `json:"token"`
	}

	transactionResponse struct {
		ID          int64     `json:"id"`
		UserID      int64     `json:"userId"`
		Type        string    `json:"type"`
		Amount      float64   `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Date        string    `json:"date"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	transactionListResponse struct {
		Transactions []transactionResponse `json:"transactions"`
		Pagination   services.Pagination   `json:"pagination"`
	}

	snapshotResponse struct {
		ID        int64           `json:"id"`
		Period    string          `json:"period"`
		Policy    string          `json:"policy"`
		CreatedAt time.Time       `json:"createdAt"`
		Analysis  json.RawMessage `json:"analysis"`
	}

	registerRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// transactionRequest is the body of create, update and analyze. Absent
	// fields stay nil so updates can tell them apart from zero values.
	transactionRequest struct {
		Type        *string         `json:"type"`
		Amount      json.RawMessage `json:"amount"`
		Category    *string         `json:"category"`
		Description *string         `json:"description"`
		Date        *string         `json:"date"`
	}

	analyzeRequest struct {
		Transactions json.RawMessage `json:"transactions"`
		Period       string          `json:"period"`
	}

	categorizeRequest struct {
		Description string `json:"description"`
	}
)

func newUserResponse(u core.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func newTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.Float(),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.UTC().Format(dateLayout),
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func newTransactionList(page services.TransactionPage) transactionListResponse {
	out := transactionListResponse{
		Transactions: make([]transactionResponse, 0, len(page.Transactions)),
		Pagination:   page.Pagination,
	}
	for _, tx := range page.Transactions {
		out.Transactions = append(out.Transactions, newTransactionResponse(tx))
	}
	return out
}

func newSnapshotResponse(s core.Snapshot) snapshotResponse {
	return snapshotResponse{
		ID:        s.ID,
		Period:    s.Period,
		Policy:    s.Policy,
		CreatedAt: s.CreatedAt,
		Analysis:  s.Payload,
	}
}

// parseAmount accepts a JSON number or a numeric string. The sign is
// dropped; the transaction type carries the direction.
func parseAmount(raw json.RawMessage) (core.Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return core.Money{}, core.ErrInvalidAmount
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return core.Money{}, core.ErrInvalidAmount
		}
	}
	m, err := core.MoneyFromString(text)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %s", core.ErrInvalidAmount, raw)
	}
	if err := m.Validate(); err != nil {
		return core.Money{}, err
	}
	return m, nil
}

func (req transactionRequest) toInput() (services.TransactionInput, error) {
	var in services.TransactionInput
	if req.Type == nil {
		return in, core.ErrInvalidType
	}
	typ, err := core.ParseTransactionType(*req.Type)
	if err != nil {
		return in, err
	}
	in.Type = typ

	if in.Amount, err = parseAmount(req.Amount); err != nil {
		return in, err
	}
	if req.Category == nil {
		return in, core.ErrEmptyCategory
	}
	in.Category = *req.Category
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Date != nil && *req.Date != "" {
		if in.Date, err = ParseDate(*req.Date); err != nil {
			return in, err
		}
	}
	return in, nil
}

func (req transactionRequest) toPatch() (services.TransactionPatch, error) {
	var p services.TransactionPatch
	if req.Type != nil {
		typ, err := core.ParseTransactionType(*req.Type)
		if err != nil {
			return p, err
		}
		p.Type = &typ
	}
	if len(req.Amount) > 0 {
		m, err := parseAmount(req.Amount)
		if err != nil {
			return p, err
		}
		p.Amount = &m
	}
	p.Category = req.Category
	p.Description = req.Description
	if req.Date != nil {
		d, err := ParseDate(*req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	return p, nil
}

// toTransaction converts a submitted transaction for analysis. Nothing is
// stored, so only the fields the engine reads are required.
func (req transactionRequest) toTransaction() (core.Transaction, error) {
	in, err := req.toInput()
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    core.NormalizeCategory(in.Category),
		Description: in.Description,
		Date:        in.Date,
	}
	return tx, tx.Validate()
}
