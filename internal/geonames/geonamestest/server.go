// Package geonamestest provides a fake GeoNames export server and archive
// builders for tests.
package geonamestest

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"
)

// Server serves <CC>.zip archives registered with Add.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	archives map[string][]byte
	failures map[string]int
	hits     map[string]int
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		archives: make(map[string][]byte),
		failures: make(map[string]int),
		hits:     make(map[string]int),
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/:archive", s.serveArchive)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serveArchive(c *gin.Context) {
	region := strings.TrimSuffix(c.Param("archive"), ".zip")

	s.mu.Lock()
	s.hits[region]++
	body, ok := s.archives[region]
	fail := s.failures[region] > 0
	if fail {
		s.failures[region]--
	}
	s.mu.Unlock()

	switch {
	case fail:
		c.String(http.StatusServiceUnavailable, "try later")
	case !ok:
		c.String(http.StatusNotFound, "not found")
	default:
		c.Data(http.StatusOK, "application/zip", body)
	}
}

// Add registers the archive served for region.
func (s *Server) Add(region string, archive []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[region] = archive
}

// FailNext makes the next n requests for region answer 503.
func (s *Server) FailNext(region string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[region] = n
}

// Hits returns how many requests were made for region.
func (s *Server) Hits(region string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[region]
}

// TotalHits returns the number of requests for any region.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// Archive builds a zip holding the given name -> content entries.
func Archive(t testing.TB, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// DumpArchive builds an archive shaped like a GeoNames country export:
// <region>.txt with the given lines plus readme.txt.
func DumpArchive(t testing.TB, region string, lines ...string) []byte {
	t.Helper()

	return Archive(t, map[string]string{
		region + ".txt": strings.Join(lines, "\n") + "\n",
		"readme.txt":    "readme for " + region + ".zip\n",
	})
}

// Line renders a full 19 field dump line.
func Line(id, name, lat, lon, class, code, country string) string {
	return strings.Join([]string{
		id, name, name, "", lat, lon, class, code, country,
		"", "", "", "", "", "0", "", "0", "UTC", "2024-01-01",
	}, "\t")
}
