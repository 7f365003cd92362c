// Command healthcheck checks the local certregistry server's /health
// endpoint and exits non-zero when it is unreachable or unhealthy. It is
// the container HEALTHCHECK, so it carries no dependencies.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

// defaultAddr matches the server's default CERTREGISTRY_LISTEN_ADDR.
const defaultAddr = "127.0.0.1:8080"

const checkTimeout = 2 * time.Second

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	url := "http://" + normalizeAddr(os.Getenv("CERTREGISTRY_LISTEN_ADDR")) + "/health"
	if err := check(ctx, &http.Client{Timeout: checkTimeout}, url); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

// check issues GET url and fails unless the server answers 200.
func check(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// normalizeAddr maps the server's listen address to one the check can dial.
// Bind-all hosts (empty, 0.0.0.0, ::) become loopback; anything unparsable
// falls back to the default listen address.
func normalizeAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
