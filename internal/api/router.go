package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/snapshot", s.getSnapshot).Methods(http.MethodGet)
	v1.HandleFunc("/devices", s.getDevices).Methods(http.MethodGet)
	v1.HandleFunc("/devices", s.addDevice).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}", s.updateDevice).Methods(http.MethodPatch)
	v1.HandleFunc("/devices/{id}", s.removeDevice).Methods(http.MethodDelete)
	v1.HandleFunc("/devices/{id}/power", s.setDevicePower).Methods(http.MethodPost)
	v1.HandleFunc("/events", s.streamEvents).Methods(http.MethodGet)

	return r
}
