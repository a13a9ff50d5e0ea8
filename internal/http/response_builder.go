package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"finwell/internal/core"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	payload    any
	hasBody    bool
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.payload = v
	b.hasBody = true
	return b
}

// Write encodes the payload before touching w, so an encoding failure can
// still become a clean 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if !b.hasBody {
		w.WriteHeader(b.statusCode)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(b.payload); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(buf.Bytes())
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// ValidationErrorResponse lists every rejected field.
func ValidationErrorResponse(verr *core.ValidationError) *ResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		JSON(errorBody{Error: "validation failed", Fields: verr.Fields})
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// NotFound has no body.
func NotFound() *ResponseBuilder {
	return NewJSONResponse().Status(http.StatusNotFound)
}

func MethodNotAllowedError() *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed")
}

// transactionResponse is the wire form of core.Transaction. Amount is a
// JSON number written from the exact decimal text.
type transactionResponse struct {
	ID        int64       `json:"id"`
	Category  string      `json:"category"`
	Note      *string     `json:"note"`
	Amount    json.Number `json:"amount"`
	Date      core.Date   `json:"date"`
	Type      string      `json:"type"`
	CreatedAt time.Time   `json:"createdAt"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		Category:  t.Category,
		Note:      t.Note,
		Amount:    json.Number(t.Amount.String()),
		Date:      t.Date,
		Type:      t.Type.String(),
		CreatedAt: t.CreatedAt.UTC(),
	}
}

func newTransactionList(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

// summaryResponse marshals as a JSON object whose keys keep store order.
type summaryResponse []core.CategoryAmount

func (s summaryResponse) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(c.Amount.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
