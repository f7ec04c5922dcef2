// Package helpertest contains shared test helpers.
package helpertest

import (
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/dnstrail/dnstrail/log"
)

// TempFile creates temp file with passed data
func TempFile(data string) *os.File {
	f, err := os.CreateTemp("", "dnstrail")
	if err != nil {
		log.Log().Fatal(err)
	}

	if _, err := f.WriteString(data); err != nil {
		log.Log().Fatal(err)
	}

	return f
}

// TestServer creates a test http server which returns the passed data
func TestServer(data string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, err := rw.Write([]byte(data))
		if err != nil {
			log.Log().Fatal("can't write to buffer:", err)
		}
	}))
}
