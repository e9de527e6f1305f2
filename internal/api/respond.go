package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rail-booking/internal/booking"
	"rail-booking/internal/rail"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}

// fieldBody is the {"field": ["message"]} error shape.
func fieldBody(field, msg string) map[string][]string {
	return map[string][]string{field: {msg}}
}

// decode reads a JSON body into v. Malformed input is a FieldError on
// "non_field_errors".
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return &rail.FieldError{Field: "non_field_errors", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// writeError maps domain and storage errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *rail.FieldError
	var te *booking.TicketError
	switch {
	case errors.As(err, &te):
		code := http.StatusBadRequest
		if te.Conflict {
			code = http.StatusConflict
		}
		writeJSON(w, code, fieldBody(te.Field, te.Message))
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadRequest, fieldBody(fe.Field, fe.Message))
	case errors.Is(err, booking.ErrUnauthenticated):
		writeDetail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, booking.ErrEmptyOrder):
		writeJSON(w, http.StatusBadRequest, fieldBody("tickets", "this list may not be empty"))
	case errors.Is(err, rail.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	case errors.Is(err, rail.ErrDuplicate), errors.Is(err, rail.ErrSeatTaken):
		writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, rail.ErrReferenced):
		writeDetail(w, http.StatusConflict, "cannot delete: still referenced by other objects")
	case errors.Is(err, rail.ErrInvalidReference):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}

// writeOrderError aligns a ticket failure with the submitted list:
// {"tickets": [{}, {"cargo": ["..."]}]}.
func writeOrderError(w http.ResponseWriter, r *http.Request, err error, n int) {
	var te *booking.TicketError
	if !errors.As(err, &te) || te.Index < 0 || te.Index >= n {
		writeError(w, r, err)
		return
	}
	items := make([]map[string][]string, n)
	for i := range items {
		items[i] = map[string][]string{}
	}
	items[te.Index] = fieldBody(te.Field, te.Message)
	code := http.StatusBadRequest
	if te.Conflict {
		code = http.StatusConflict
	}
	writeJSON(w, code, map[string]any{"tickets": items})
}
