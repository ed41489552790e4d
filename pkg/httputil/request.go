package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	vars := mux.Vars(r)
	value, ok := vars[key]
	if !ok {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", key)
	}
	return id, nil
}

// ParsePathInt64OrError extracts an int64 path parameter, writing a 400
// response on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return id, true
}

// ParseQueryInt parses an integer query parameter with a default
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", key)
	}
	return parsed, nil
}

// ParseQueryInt64 parses an int64 query parameter with a default
func ParseQueryInt64(r *http.Request, key string, defaultVal int64) (int64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", key)
	}
	return parsed, nil
}

// ParseQueryString returns a query parameter or a default
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultVal
	}
	return value
}

// RequireNonEmpty validates that a string field is present, writing a 400
// response when it is not
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		WriteBadRequest(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}
