package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rail-booking/internal/auth"
)

// authenticate attaches the caller's Identity. A token that is present but
// does not verify is refused outright.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authn.Identify(r)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// allow consults the access policy for resource before running h.
func (s *Server) allow(resource string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.FromContext(r.Context())
		ok, err := s.authz.Allow(r.Context(), auth.Request{Method: r.Method, Resource: resource, Identity: id})
		if err != nil {
			log.Printf("authorize %s %s: %v", r.Method, r.URL.Path, err)
			writeDetail(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			if !id.Authenticated() {
				writeDetail(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}
			writeDetail(w, http.StatusForbidden, "you do not have permission to perform this action")
			return
		}
		h(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// observe records request duration labelled by route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.ObserveRequest(route, r.Method, rec.code, time.Since(start))
	})
}
