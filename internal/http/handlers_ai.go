package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/repository"
)

// handleAnalyze analyzes the transactions in the body without storing them.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := DecodeJSON(w, r, maxAnalyzeBodyBytes, &req); err != nil {
		BadRequestError("Dados inválidos", CodeInvalidJSON).Write(w)
		return
	}
	raw := bytes.TrimSpace(req.Transactions)
	if len(raw) == 0 || raw[0] != '[' {
		BadRequestError("Transações são obrigatórias", CodeMissingTransactions).Write(w)
		return
	}
	var items []transactionRequest
	if err := json.Unmarshal(raw, &items); err != nil {
		BadRequestError("Dados inválidos", CodeInvalidJSON).Write(w)
		return
	}

	txs := make([]core.Transaction, 0, len(items))
	for i, item := range items {
		tx, err := item.toTransaction()
		if err != nil {
			UnprocessableEntityError(fmt.Sprintf("transação %d: %v", i, err)).Write(w)
			return
		}
		txs = append(txs, tx)
	}

	res := s.analysis.Analyze(r.Context(), txs, req.Period)
	s.metrics.analysesServed.Add(1)
	NewJSONResponse().Data(res).Write(w)
}

// handleAnalysis analyzes the caller's stored transactions for ?period=.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := s.analysis.AnalyzeUser(r.Context(), userID(r), r.URL.Query().Get("period"))
	if err != nil {
		ServiceErrorResponse(r, err, log.OpAnalyze).Write(w)
		return
	}
	s.metrics.analysesServed.Add(1)
	NewJSONResponse().Data(res).Write(w)
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		BadRequestError("Dados inválidos", CodeInvalidJSON).Write(w)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		BadRequestError("Descrição é obrigatória", CodeMissingDescription).Write(w)
		return
	}
	NewJSONResponse().Data(s.analysis.Categorize(req.Description)).Write(w)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.analysis.LatestSnapshot(r.Context(), userID(r))
	if errors.Is(err, repository.ErrNotFound) {
		NotFoundError("Nenhum resumo encontrado").Write(w)
		return
	}
	if err != nil {
		ServiceErrorResponse(r, err, log.OpSnapshot).Write(w)
		return
	}
	NewJSONResponse().Data(newSnapshotResponse(snap)).Write(w)
}
