// Package gateway mounts the admission pipeline in front of a
// reverse-proxied upstream, mirroring the teacher's api.New: build a
// mux.Router, wrap it in CORS and compression middleware, and return a
// single http.HandlerFunc (api/api.go).
package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	legerr "github.com/seatrace-io/leg/internal/gatewayerr"
	leghttp "github.com/seatrace-io/leg/internal/httputil"
	"github.com/seatrace-io/leg/internal/obslog"
	"github.com/seatrace-io/leg/internal/pipeline"
	"github.com/seatrace-io/leg/pkg/license"
)

var logger = obslog.WithContext("pkg", "gateway")

// Config configures the gateway's public HTTP surface.
type Config struct {
	Upstream       *url.URL
	AllowedOrigins string
}

// New builds the gateway's http.HandlerFunc: every request runs
// through the pipeline before being forwarded to Upstream. Pillar is
// taken from the X-Pillar header when present, otherwise from the
// request path's first segment (GLOSSARY: pillar names are also the
// gateway's top-level route namespaces).
func New(p *pipeline.Pipeline, cfg Config) http.HandlerFunc {
	proxy := httputil.NewSingleHostReverseProxy(cfg.Upstream)

	origins := strings.Split(strings.TrimSpace(cfg.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()
	router.PathPrefix("/").HandlerFunc(leghttp.WrapHandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		return handle(p, proxy, w, r)
	}))

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "authorization", "x-st-license", "x-pillar", "idempotency-key", "x-metered-resource"}),
		handlers.ExposedHeaders([]string{"x-correlation-id", "x-license-type", "x-license-id", "x-license-org", "x-quota-warning"}),
	)(handler)

	return handler.ServeHTTP
}

func handle(p *pipeline.Pipeline, proxy *httputil.ReverseProxy, w http.ResponseWriter, r *http.Request) error {
	token := bearerToken(r)
	pillar := pillarOf(r)

	d := p.Run(r.Context(), pipeline.Inbound{
		Method:         r.Method,
		Path:           r.URL.Path,
		Host:           r.Host,
		Token:          token,
		Pillar:         pillar,
		Resource:       r.Header.Get("X-Metered-Resource"),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})

	for k, v := range d.Context.Headers {
		w.Header().Set(k, v)
	}

	switch d.Kind {
	case pipeline.KindReject:
		return d.Err
	case pipeline.KindAdmit:
		defer d.Release()
		proxy.ServeHTTP(w, r)
		return nil
	default:
		return legerr.New(http.StatusInternalServerError, legerr.CodeMalformed, "pipeline returned no decision")
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-St-License")
}

func pillarOf(r *http.Request) license.Pillar {
	if h := r.Header.Get("X-Pillar"); h != "" {
		return license.Pillar(h)
	}
	segs := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if len(segs) > 0 && segs[0] != "" {
		return license.Pillar(segs[0])
	}
	return license.PillarSeaside
}
