package api

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
)

const genericErrorMessage = "An internal server error occurred."

type errorResponse struct {
	Error string `json:"error"`
}

// respondInternalError logs the error detail server-side and answers with a
// fixed generic body, so upstream or storage failures never leak to clients.
func respondInternalError(rw http.ResponseWriter, err error) {
	glog.Errorf("Error serving request. err=%q", err)
	respondJson(rw, http.StatusInternalServerError, errorResponse{Error: genericErrorMessage})
}

func respondJson(rw http.ResponseWriter, status int, response interface{}) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(response); err != nil {
		glog.Errorf("Error writing response. err=%q, response=%+v", err, response)
	}
}
