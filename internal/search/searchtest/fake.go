// Package searchtest serves just enough of the Elasticsearch REST API for
// the search client: info, index creation, document writes, deletes and a
// search that returns every stored document of the index.
package searchtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fekuna/omnipos-pricing-service/internal/search"
)

type Server struct {
	mu      sync.Mutex
	indices map[string]bool
	docs    map[string]map[string]json.RawMessage
	// searches holds the decoded body of every search request.
	searches   []map[string]interface{}
	failSearch bool
}

// New starts a fake cluster and returns a client connected to it.
func New(t testing.TB) (*search.Client, *Server) {
	t.Helper()
	s := &Server{indices: map[string]bool{}, docs: map[string]map[string]json.RawMessage{}}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(srv.Close)

	client, err := search.NewClient(&search.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("connect to fake elasticsearch: %v", err)
	}
	return client, s
}

// SetFailSearch makes searches answer 500.
func (s *Server) SetFailSearch(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSearch = fail
}

func (s *Server) Searches() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]interface{}(nil), s.searches...)
}

// Doc returns a stored document, or nil.
func (s *Server) Doc(index, id string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[index][id]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/":
		io.WriteString(w, `{"version":{"number":"8.19.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)

	case r.Method == http.MethodPut && len(parts) == 1:
		if s.indices[parts[0]] {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"type":"resource_already_exists_exception"},"status":400}`)
			return
		}
		s.indices[parts[0]] = true
		io.WriteString(w, `{"acknowledged":true}`)

	case len(parts) == 3 && parts[1] == "_doc" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		body, _ := io.ReadAll(r.Body)
		if s.docs[parts[0]] == nil {
			s.docs[parts[0]] = map[string]json.RawMessage{}
		}
		s.docs[parts[0]][parts[2]] = body
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)

	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := s.docs[parts[0]][parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(s.docs[parts[0]], parts[2])
		io.WriteString(w, `{"result":"deleted"}`)

	case len(parts) == 2 && parts[1] == "_search":
		var q map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&q)
		s.searches = append(s.searches, q)
		if s.failSearch {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":{"type":"search_phase_execution_exception"},"status":500}`)
			return
		}
		s.writeHits(w, parts[0])

	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{}`)
	}
}

func (s *Server) writeHits(w io.Writer, index string) {
	type hit struct {
		ID     string          `json:"_id"`
		Source json.RawMessage `json:"_source"`
	}
	var res struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []hit `json:"hits"`
		} `json:"hits"`
	}
	res.Hits.Hits = []hit{}
	for id, doc := range s.docs[index] {
		res.Hits.Hits = append(res.Hits.Hits, hit{ID: id, Source: doc})
	}
	res.Hits.Total.Value = len(res.Hits.Hits)
	_ = json.NewEncoder(w).Encode(res)
}
