package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/saxonmc/book-finder/pkg/httputil"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, httputil.Response{Data: data})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeData(w, http.StatusOK, messageResponse{Message: message})
}

func writeInvalidParam(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}

// queryInt parses an integer query parameter. An absent parameter is 0;
// a malformed one writes a 400 and reports false.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeInvalidParam(w, name+" must be an integer")
		return 0, false
	}
	return n, true
}

func queryFloat(w http.ResponseWriter, r *http.Request, name string) (float64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeInvalidParam(w, name+" must be a number")
		return 0, false
	}
	return f, true
}
