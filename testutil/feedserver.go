package testutil

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
)

// Defaults for the mock feed server port. MOCKUP_SERVER_PORT overrides the
// default and is used as-is (a busy port is an error); without it, up to a
// hundred ports starting at the default are probed.
const (
	defaultMockPort = 8788
	portProbeRange  = 100
)

// FeedServer is a test double for transit-agency endpoints. It serves
// fixture FeedMessages at /vehicle_positions, /trip_updates, and /alerts,
// and 404s everything else.
type FeedServer struct {
	server   *http.Server
	listener net.Listener
	port     int
}

// StartFeedServer binds the mock server. Port selection: MOCKUP_SERVER_PORT
// if set, otherwise the default with a scan upward when busy.
func StartFeedServer() (*FeedServer, error) {
	base := defaultMockPort
	fixed := false

	if env := os.Getenv("MOCKUP_SERVER_PORT"); env != "" {
		p, err := strconv.Atoi(env)
		if err != nil {
			return nil, fmt.Errorf("testutil: bad MOCKUP_SERVER_PORT %q: %w", env, err)
		}

		base = p
		fixed = true
	}

	var (
		listener net.Listener
		port     int
		err      error
	)

	for offset := range portProbeRange {
		port = base + offset

		listener, err = net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			break
		}

		if fixed {
			return nil, fmt.Errorf("testutil: binding port %d: %w", base, err)
		}
	}

	if listener == nil {
		return nil, fmt.Errorf("testutil: no free port in [%d, %d): %w", base, base+portProbeRange, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/vehicle_positions", serveFixture(VehiclePositionFeed(5)))
	mux.HandleFunc("/trip_updates", serveFixture(TripUpdateFeed(3)))
	mux.HandleFunc("/alerts", serveFixture(AlertFeed(2)))

	fs := &FeedServer{
		server:   &http.Server{Handler: mux},
		listener: listener,
		port:     port,
	}

	go fs.server.Serve(listener)

	return fs, nil
}

// Port returns the bound port.
func (fs *FeedServer) Port() int {
	return fs.port
}

// URL returns the server's base URL plus path, e.g. URL("/alerts").
func (fs *FeedServer) URL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", fs.port, path)
}

// Stop shuts the server down.
func (fs *FeedServer) Stop() {
	fs.server.Close()
}

func serveFixture(data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(data)
	}
}
