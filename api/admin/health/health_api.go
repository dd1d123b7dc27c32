package health

import (
	"net/http"

	"github.com/gorilla/mux"

	leghttp "github.com/seatrace-io/leg/internal/httputil"
)

// API mounts the health check under the admin router (§6.6).
type API struct {
	healthStatus *Health
}

func NewAPI(healthStatus *Health) *API {
	return &API{healthStatus: healthStatus}
}

func (h *API) handleGetHealth(w http.ResponseWriter, _ *http.Request) error {
	status, err := h.healthStatus.Status()
	if err != nil {
		return err
	}

	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	return leghttp.WriteJSON(w, status)
}

func (h *API) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("health").
		HandlerFunc(leghttp.WrapHandlerFunc(h.handleGetHealth))
}
