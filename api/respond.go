package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/cashier/id"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data) //nolint:errcheck // client went away
	}
}

// decode reads a JSON body into dst, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// readBody returns the raw body, used where the exact bytes are signed.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return body, nil
}

// page reads limit and offset, defaulting limit to 50 and capping it at 500.
func page(r *http.Request) (limit, offset int, err error) {
	limit, err = intParam(r, "limit", 50)
	if err != nil {
		return 0, 0, err
	}
	offset, err = intParam(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	return limit, max(offset, 0), nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return v, nil
}

func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339", errBadRequest, name)
	}
	return t, nil
}

func boolParam(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name)) //nolint:errcheck // absent or bad means false
	return v
}

// pathID parses a URL parameter as an ID with the given prefix.
func pathID(r *http.Request, name string, prefix id.Prefix) (id.ID, error) {
	v, err := id.ParseWithPrefix(chi.URLParam(r, name), prefix)
	if err != nil {
		return id.Nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return v, nil
}

// wantsCSV reports whether ?format=csv was requested. Any other
// non-empty format is rejected.
func wantsCSV(r *http.Request) (bool, error) {
	switch r.URL.Query().Get("format") {
	case "", "json":
		return false, nil
	case "csv":
		return true, nil
	default:
		return false, errUnsupported
	}
}

// list wraps collection responses.
type list[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}
