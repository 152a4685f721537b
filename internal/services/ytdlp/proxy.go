package ytdlp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultProxyPorts are the local ports common desktop proxy tools listen on.
var DefaultProxyPorts = []int{1080, 2080, 8080, 3128, 9050, 9999}

const (
	proxyDialTimeout    = 700 * time.Millisecond
	proxyOverallTimeout = 2500 * time.Millisecond
)

// ProxyDetector finds a usable local proxy.
type ProxyDetector interface {
	Detect(ctx context.Context) string
}

// LocalProxyDetector dials host on each port concurrently and returns the
// first proxy that answers, formatted as a yt-dlp --proxy URL.
type LocalProxyDetector struct {
	Host        string
	Ports       []int
	DialTimeout time.Duration
	Overall     time.Duration
}

// NewLocalProxyDetector scans 127.0.0.1 on DefaultProxyPorts.
func NewLocalProxyDetector() *LocalProxyDetector {
	return &LocalProxyDetector{
		Host:        "127.0.0.1",
		Ports:       DefaultProxyPorts,
		DialTimeout: proxyDialTimeout,
		Overall:     proxyOverallTimeout,
	}
}

// Detect returns "" when no port answers within the overall deadline.
func (d *LocalProxyDetector) Detect(ctx context.Context) string {
	if d == nil || len(d.Ports) == 0 {
		return ""
	}
	overall := d.Overall
	if overall <= 0 {
		overall = proxyOverallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	found := make(chan string, len(d.Ports))
	for _, port := range d.Ports {
		go func(port int) {
			if proxy := d.tryPort(ctx, port); proxy != "" {
				found <- proxy
			}
		}(port)
	}

	select {
	case proxy := <-found:
		return proxy
	case <-ctx.Done():
		return ""
	}
}

// tryPort opens a connection and sends a SOCKS5 greeting. A SOCKS5 reply means
// socks5; any other reply (typically an HTTP 400) means an HTTP proxy.
func (d *LocalProxyDetector) tryPort(ctx context.Context, port int) string {
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = proxyDialTimeout
	}
	addr := net.JoinHostPort(d.Host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ""
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return ""
	}
	reply := make([]byte, 2)
	n, _ := conn.Read(reply)
	switch {
	case n > 0 && reply[0] == 0x05:
		return fmt.Sprintf("socks5://%s", addr)
	case n > 0:
		return fmt.Sprintf("http://%s", addr)
	default:
		return ""
	}
}
