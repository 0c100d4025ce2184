// Package main is the entrypoint for the tts-gateway.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/morezero/tts-gateway/internal/config"
	"github.com/morezero/tts-gateway/internal/server"
	"github.com/morezero/tts-gateway/pkg/commsutil"
	"github.com/morezero/tts-gateway/pkg/dispatcher"
)

const usage = `Usage: tts-gateway [command]
       tts-gateway serve     Start the gateway (HTTP /api and /status, optional COMMS transport).
       tts-gateway status    Print GET /status of a running gateway.
       tts-gateway stop      Send stop_server to a running gateway.

Commands:
  serve    (default) Start the gateway.
  status   Query the request counter of the gateway at GATEWAY_HOST:GATEWAY_PORT.
  stop     Ask the gateway at GATEWAY_HOST:GATEWAY_PORT to shut down.
  help     Show this message.

Environment: GATEWAY_HOST (default 0.0.0.0), GATEWAY_PORT (default 8080), TRADE_FACADE (simulator|comms),
COMMS_URL (empty disables COMMS), SIM_FIXTURE_FILE, SIM_MIN_CLIENT_VERSION, LOG_LEVEL. See README.
`

const clientTimeout = 5 * time.Second

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "status":
		if err := runClient(func(base string) error { return runStatus(base, os.Stdout) }); err != nil {
			log.Fatalf("tts-gateway status: %v", err)
		}
		return
	case "stop":
		if err := runClient(func(base string) error { return runStop(base, os.Stdout) }); err != nil {
			log.Fatalf("tts-gateway stop: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("tts-gateway: %v", err)
	}
}

func runClient(fn func(base string) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	base, err := gatewayURL(cfg)
	if err != nil {
		return err
	}
	return fn(base)
}

// gatewayURL is the base URL a local client uses to reach the configured
// listener. Wildcard bind hosts are reached over loopback.
func gatewayURL(cfg *config.Config) (string, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return "", fmt.Errorf("GATEWAY_PORT %d cannot be dialed", cfg.Port)
	}
	host := cfg.Host
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Port)), nil
}

func runStatus(base string, out io.Writer) error {
	client := &http.Client{Timeout: clientTimeout}
	resp, err := client.Get(base + "/status")
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	return printBody(resp, out)
}

func runStop(base string, out io.Writer) error {
	body, err := commsutil.EncodePayload(map[string]interface{}{
		"func":   dispatcher.StopCommand,
		"params": map[string]interface{}{},
	})
	if err != nil {
		return fmt.Errorf("encode stop request: %w", err)
	}
	client := &http.Client{Timeout: clientTimeout}
	resp, err := client.Post(base+"/api", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send stop_server: %w", err)
	}
	return printBody(resp, out)
}

func printBody(resp *http.Response, out io.Writer) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}
	if !commsutil.ValidPayload(data) {
		return fmt.Errorf("response is not JSON: %q", data)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
