package odata

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes publishes the model under prefix: the CSDL document at
// {prefix}/$metadata and the service document at {prefix}/. Surrounding
// slashes of prefix are ignored, so "odata", "/odata/" and "/odata" are the
// same and "" publishes at the root.
func RegisterRoutes(router chi.Router, prefix string, m *Model) error {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix = "/" + prefix
	}
	metadata, err := GenerateMetadata(m)
	if err != nil {
		return err
	}
	serviceDocument := ServiceDocument(m, prefix+"/$metadata")

	router.Get(prefix+"/$metadata", func(w http.ResponseWriter, r *http.Request) {
		handleGetMetadata(w, r, metadata)
	})
	router.Get(prefix+"/", func(w http.ResponseWriter, r *http.Request) {
		handleGetServiceDocument(w, r, serviceDocument)
	})
	if prefix != "" {
		router.Get(prefix, func(w http.ResponseWriter, r *http.Request) {
			handleGetServiceDocument(w, r, serviceDocument)
		})
	}
	log.Printf("Registered OData routes under %q for %s", prefix+"/", m.namespace)
	return nil
}

func handleGetMetadata(w http.ResponseWriter, r *http.Request, metadata string) {
	log.Printf("Handling GET request for %s", r.URL.Path)
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("OData-Version", "4.0")
	if _, err := w.Write([]byte(metadata)); err != nil {
		log.Printf("Writing metadata failed: %v", err)
	}
}

func handleGetServiceDocument(w http.ResponseWriter, r *http.Request, doc OrderedFields) {
	log.Printf("Handling GET request for %s", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("OData-Version", "4.0")
	if err := encodeJSONPreserveOrder(w, doc); err != nil {
		log.Printf("Writing service document failed: %v", err)
	}
}
