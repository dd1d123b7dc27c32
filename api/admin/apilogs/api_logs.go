// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package apilogs

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/seatrace-io/leg/internal/gatewayerr"
	leghttp "github.com/seatrace-io/leg/internal/httputil"
	"github.com/seatrace-io/leg/internal/obslog"
)

var logger = obslog.WithContext("pkg", "apilogs")

// LogStatus is the request-logging toggle's wire shape.
type LogStatus struct {
	Enabled bool `json:"enabled"`
}

// APILogs reads and sets the shared request-logging flag at runtime. No
// handler in the gateway's request path reads the flag.
type APILogs struct {
	enabled *atomic.Bool
	mu      sync.Mutex
}

func New(enabled *atomic.Bool) *APILogs {
	return &APILogs{
		enabled: enabled,
	}
}

func (a *APILogs) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodGet).
		Name("get-api-logs-enabled").
		HandlerFunc(leghttp.WrapHandlerFunc(a.areAPILogsEnabled))

	sub.Path("").
		Methods(http.MethodPost).
		Name("post-api-logs-enabled").
		HandlerFunc(leghttp.WrapHandlerFunc(a.setAPILogsEnabled))
}

func (a *APILogs) areAPILogsEnabled(w http.ResponseWriter, _ *http.Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return leghttp.WriteJSON(w, LogStatus{
		Enabled: a.enabled.Load(),
	})
}

func (a *APILogs) setAPILogsEnabled(w http.ResponseWriter, r *http.Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var req LogStatus
	if err := leghttp.ParseJSON(r.Body, &req); err != nil {
		return gatewayerr.New(http.StatusBadRequest, gatewayerr.CodeMalformed, err.Error())
	}
	a.enabled.Store(req.Enabled)

	logger.Info("api logs updated", "enabled", req.Enabled)

	return leghttp.WriteJSON(w, LogStatus{
		Enabled: a.enabled.Load(),
	})
}
