package http

import (
	"net/http"

	"gastos/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseListFilter(r)
	if err != nil {
		BadRequestError(err.Error(), CodeInvalidFilter).Write(w)
		return
	}

	page, err := s.txs.List(r.Context(), userID(r), f)
	if err != nil {
		ServiceErrorResponse(r, err, log.OpList).Write(w)
		return
	}
	NewJSONResponse().Data(newTransactionList(page)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		BadRequestError("Dados inválidos", CodeInvalidJSON).Write(w)
		return
	}
	in, err := req.toInput()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	tx, err := s.txs.Create(r.Context(), userID(r), in)
	if err != nil {
		ServiceErrorResponse(r, err, log.OpCreate).Write(w)
		return
	}
	s.metrics.transactionsCreated.Add(1)
	NewJSONResponse().Status(http.StatusCreated).Data(newTransactionResponse(tx)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error(), CodeInvalidID).Write(w)
		return
	}

	tx, err := s.txs.Get(r.Context(), userID(r), id)
	if err != nil {
		ServiceErrorResponse(r, err, log.OpRead).Write(w)
		return
	}
	NewJSONResponse().Data(newTransactionResponse(tx)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error(), CodeInvalidID).Write(w)
		return
	}
	var req transactionRequest
	if err := DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		BadRequestError("Dados inválidos", CodeInvalidJSON).Write(w)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	tx, err := s.txs.Update(r.Context(), userID(r), id, patch)
	if err != nil {
		ServiceErrorResponse(r, err, log.OpUpdate).Write(w)
		return
	}
	NewJSONResponse().Data(newTransactionResponse(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error(), CodeInvalidID).Write(w)
		return
	}

	if err := s.txs.Delete(r.Context(), userID(r), id); err != nil {
		ServiceErrorResponse(r, err, log.OpDelete).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDuplicateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error(), CodeInvalidID).Write(w)
		return
	}

	tx, err := s.txs.Duplicate(r.Context(), userID(r), id)
	if err != nil {
		ServiceErrorResponse(r, err, log.OpDuplicate).Write(w)
		return
	}
	s.metrics.transactionsCreated.Add(1)
	NewJSONResponse().Status(http.StatusCreated).Data(newTransactionResponse(tx)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := ParseDateRange(r)
	if err != nil {
		BadRequestError(err.Error(), CodeInvalidFilter).Write(w)
		return
	}

	summary, err := s.txs.Summary(r.Context(), userID(r), start, end)
	if err != nil {
		ServiceErrorResponse(r, err, "summary").Write(w)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.txs.Categories(r.Context(), userID(r))
	if err != nil {
		ServiceErrorResponse(r, err, "categories").Write(w)
		return
	}
	NewJSONResponse().Data(cats).Write(w)
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r, s.now())
	if err != nil {
		BadRequestError(err.Error(), CodeInvalidFilter).Write(w)
		return
	}

	stats, err := s.txs.MonthlyStats(r.Context(), userID(r), year)
	if err != nil {
		ServiceErrorResponse(r, err, "monthly_stats").Write(w)
		return
	}
	NewJSONResponse().Data(map[string]any{"year": year, "months": stats}).Write(w)
}
