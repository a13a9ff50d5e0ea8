package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"finwell/internal/core"
)

const maxBodyBytes = 1 << 20

// errMalformedRequest marks input that could not be decoded at all, as
// opposed to decoded input that failed validation.
var errMalformedRequest = errors.New("malformed request")

// createTransactionRequest separates "absent or null" from zero values for
// amount and date.
type createTransactionRequest struct {
	Category string              `json:"category"`
	Note     *string             `json:"note"`
	Amount   decimal.NullDecimal `json:"amount"`
	Date     *core.Date          `json:"date"`
	Type     string              `json:"type"`
}

// decodeCreateRequest reads and validates a create body. It returns an
// errMalformedRequest-wrapped error for undecodable input and a
// *core.ValidationError listing every violated field otherwise.
func decodeCreateRequest(w http.ResponseWriter, r *http.Request) (core.NewTransaction, error) {
	var req createTransactionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return core.NewTransaction{}, fmt.Errorf("%w: empty body", errMalformedRequest)
		}
		return core.NewTransaction{}, fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	if dec.More() {
		return core.NewTransaction{}, fmt.Errorf("%w: unexpected data after JSON object", errMalformedRequest)
	}

	return req.toNewTransaction()
}

func (req createTransactionRequest) toNewTransaction() (core.NewTransaction, error) {
	verr := &core.ValidationError{}
	if !req.Amount.Valid {
		verr.Add("amount", "must not be null")
	}
	if req.Date == nil {
		verr.Add("date", "must not be null")
	}

	nt := core.NewTransaction{
		Category: req.Category,
		Note:     req.Note,
		Amount:   req.Amount.Decimal,
		Type:     core.TransactionType(req.Type),
	}
	if req.Date != nil {
		nt.Date = *req.Date
	}

	var fieldErr *core.ValidationError
	if err := nt.Validate(); errors.As(err, &fieldErr) {
		for field, msg := range fieldErr.Fields {
			verr.Add(field, msg)
		}
	}
	if err := verr.Err(); err != nil {
		return core.NewTransaction{}, err
	}
	return nt, nil
}

// parseMonthParam reads the required month query parameter.
func parseMonthParam(r *http.Request) (core.Month, error) {
	return core.ParseMonth(r.URL.Query().Get("month"))
}

// parseIDParam reads the {id} path segment.
func parseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not an integer", errMalformedRequest, raw)
	}
	return id, nil
}
