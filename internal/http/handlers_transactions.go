package http

import (
	"net/http"

	"finwell/internal/log"
)

// handleList serves GET /api/transactions?month=YYYY-MM.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}

	txs, err := s.svc.ListMonth(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().JSON(newTransactionList(txs)).Write(w)
}

// handleCreate serves POST /api/transactions.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCreateRequest(w, r)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}

	tx, err := s.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(newTransactionResponse(tx)).Write(w)
}

// handleDelete serves DELETE /api/transactions/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}

	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary serves GET /api/transactions/summary?month=YYYY-MM.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r)
	if err != nil {
		writeServiceError(w, r, log.OpSummary, err)
		return
	}

	sum, err := s.svc.SummaryMonth(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, log.OpSummary, err)
		return
	}
	NewJSONResponse().JSON(summaryResponse(sum.ByCategory)).Write(w)
}
