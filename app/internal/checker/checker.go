package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/miekg/dns"

	"pulse/app/internal/models"
	"pulse/app/internal/version"
)

// Supported target schemes
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeTCP   = "tcp"
	SchemeDNS   = "dns"
)

// Options bounds and grades a single probe
type Options struct {
	Timeout time.Duration
	// WarningLatency marks slow successes as warnings; 0 disables it
	WarningLatency time.Duration
}

// Prober performs one probe of an endpoint
type Prober interface {
	Check(ctx context.Context, e models.Endpoint) models.Sample
}

// HTTPProber is the default Prober. Despite the name it also handles tcp:// and dns:// targets.
type HTTPProber struct {
	opts   Options
	client *http.Client
	dns    *dns.Client
}

// New creates a prober sharing one HTTP client across endpoints
func New(opts Options) *HTTPProber {
	return &HTTPProber{
		opts:   opts,
		client: &http.Client{},
		dns:    &dns.Client{},
	}
}

// Check probes e once, bounded by the configured timeout. It never returns an error:
// failures become Down samples.
func (p *HTTPProber) Check(ctx context.Context, e models.Endpoint) models.Sample {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	u, err := url.Parse(e.Target)
	if err != nil {
		return down(fmt.Errorf("invalid target: %w", err))
	}

	switch strings.ToLower(u.Scheme) {
	case SchemeHTTP, SchemeHTTPS:
		return p.checkHTTP(ctx, e)
	case SchemeTCP:
		return p.checkTCP(ctx, u)
	case SchemeDNS:
		return p.checkDNS(ctx, e, u)
	}
	return down(fmt.Errorf("unsupported scheme %q", u.Scheme))
}

// Check probes e once with a throwaway prober
func Check(ctx context.Context, e models.Endpoint, opts Options) models.Sample {
	return New(opts).Check(ctx, e)
}

func (p *HTTPProber) checkHTTP(ctx context.Context, e models.Endpoint) models.Sample {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.Target, nil)
	if err != nil {
		return down(err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	t0 := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(t0)
	if err != nil {
		return down(err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	return p.success(elapsed, resp.StatusCode, e.Expected, true)
}

func (p *HTTPProber) checkTCP(ctx context.Context, u *url.URL) models.Sample {
	var d net.Dialer
	t0 := time.Now()
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	elapsed := time.Since(t0)
	if err != nil {
		return down(err)
	}
	_ = conn.Close()

	return p.success(elapsed, 0, 0, false)
}

// checkDNS resolves the A record of the path name against the server in the host part:
// dns://1.1.1.1/example.com
func (p *HTTPProber) checkDNS(ctx context.Context, e models.Endpoint, u *url.URL) models.Sample {
	server := u.Host
	if u.Port() == "" {
		server = net.JoinHostPort(u.Hostname(), "53")
	}
	name := strings.Trim(u.Path, "/")

	msg := dns.Msg{}
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)

	t0 := time.Now()
	resp, _, err := p.dns.ExchangeContext(ctx, &msg, server)
	elapsed := time.Since(t0)
	if err != nil {
		return down(err)
	}

	return p.success(elapsed, resp.Rcode, e.Expected, true)
}

func (p *HTTPProber) success(elapsed time.Duration, code, expected int, hasCode bool) models.Sample {
	status := models.StatusUp
	if hasCode && code != expected {
		status = models.StatusWarning
	}
	if p.opts.WarningLatency > 0 && elapsed > p.opts.WarningLatency {
		status = models.StatusWarning
	}

	s := models.Sample{
		Timestamp: time.Now(),
		Status:    status,
		Latency:   &elapsed,
	}
	if hasCode {
		s.Code = &code
	}
	return s
}

func down(err error) models.Sample {
	kind := Classify(err)
	return models.Sample{
		Timestamp: time.Now(),
		Status:    models.StatusDown,
		Error:     describe(kind, err),
		ErrorKind: kind,
	}
}

// Classify sorts a transport error into timeout, connection or other
func Classify(err error) models.ErrorKind {
	if err == nil {
		return models.ErrorNone
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return models.ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrorTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.ErrorConnection
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return models.ErrorConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return models.ErrorConnection
	}
	return models.ErrorOther
}

func describe(kind models.ErrorKind, err error) string {
	switch kind {
	case models.ErrorTimeout:
		return "Request timeout"
	case models.ErrorConnection:
		return "Connection failed: " + SanitizeError(err.Error())
	}
	return "Request failed: " + SanitizeError(err.Error())
}

var (
	userinfoRe = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/@\s"]+@`)
	queryRe    = regexp.MustCompile(`(://[^\s"?]*)\?[^\s"]*`)
)

// SanitizeError strips URL credentials and query strings from an error message
func SanitizeError(msg string) string {
	msg = userinfoRe.ReplaceAllString(msg, "$1")
	return queryRe.ReplaceAllString(msg, "$1")
}
