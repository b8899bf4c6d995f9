// Package remotetest provides an in-memory UPM sync repository for tests.
package remotetest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
)

// Server is a fake repository. Files live in memory keyed by name.
type Server struct {
	*httptest.Server

	User     string
	Password string

	mu    sync.Mutex
	files map[string][]byte
	log   []string

	// FailUpload, when set, makes uploads whose name it accepts answer
	// with a non-OK body.
	FailUpload func(name string) bool
	// FailDelete makes every delete answer with a non-OK body.
	FailDelete bool
}

// NewServer starts a repository requiring the given Basic Auth credentials.
func NewServer(user, password string) *Server {
	s := &Server{
		User:     user,
		Password: password,
		files:    make(map[string][]byte),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Put stores a file directly.
func (s *Server) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = slices.Clone(data)
}

// Get returns a stored file.
func (s *Server) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return slices.Clone(data), ok
}

// Names returns the stored file names, sorted.
func (s *Server) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Requests returns "METHOD path" for every authenticated request so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.log)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	user, password, ok := r.BasicAuth()
	if !ok || user != s.User || password != s.Password {
		w.Header().Set("WWW-Authenticate", `Basic realm="upm"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	s.log = append(s.log, r.Method+" "+r.URL.Path)
	s.mu.Unlock()

	name := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet:
		data, ok := s.Get(name)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)

	case r.Method == http.MethodPost && name == "deletefile.php":
		target := r.PostFormValue("fileToDelete")
		if s.FailDelete {
			io.WriteString(w, "FILE_DOESNT_EXIST")
			return
		}
		s.mu.Lock()
		_, exists := s.files[target]
		delete(s.files, target)
		s.mu.Unlock()
		if !exists {
			io.WriteString(w, "FILE_DOESNT_EXIST")
			return
		}
		io.WriteString(w, "OK")

	case r.Method == http.MethodPost && name == "upload.php":
		f, header, err := r.FormFile("userfile")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		if s.FailUpload != nil && s.FailUpload(header.Filename) {
			io.WriteString(w, "FILE_ALREADY_EXISTS")
			return
		}
		data, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.Put(header.Filename, data)
		io.WriteString(w, "OK")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
