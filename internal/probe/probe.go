// Package probe checks whether stream and logo URLs answer, using a bounded pool of workers.
package probe

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kevsosmooth/ip-live/internal/metrics"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Error tags used as status labels when no HTTP status was received.
const (
	TagTimeout         = "Timeout"
	TagConnectionError = "Connection Error"
)

// Checker defaults.
const (
	DefaultWorkers = 10
	DefaultTimeout = 10 * time.Second
)

// DefaultUserAgent is sent with every probe unless the Checker overrides it.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Policy decides which HTTP status codes count as reachable.
type Policy struct {
	AllowedStatus []int
}

// DefaultPolicy accepts 200, redirects that were not followed, and 403.
// Many stream hosts answer 403 to probes from non-player clients while still serving players.
func DefaultPolicy() Policy {
	return Policy{AllowedStatus: []int{http.StatusOK, http.StatusMovedPermanently, http.StatusFound, http.StatusForbidden}}
}

// StrictPolicy only accepts 200.
func StrictPolicy() Policy {
	return Policy{AllowedStatus: []int{http.StatusOK}}
}

// Allowed reports whether status counts as reachable.
func (p Policy) Allowed(status int) bool {
	for _, allowed := range p.AllowedStatus {
		if allowed == status {
			return true
		}
	}
	return false
}

// Result is the outcome of probing one URL.
type Result struct {
	// Index is the position of the URL in the submitted list.
	Index     int
	URL       string
	Reachable bool
	// StatusCode is zero when no response was received.
	StatusCode int
	// Error is TagTimeout, TagConnectionError, or the error text.
	Error   string
	Elapsed time.Duration
}

// Status returns the HTTP status code, or the error tag when there was no response.
func (r Result) Status() string {
	if r.StatusCode != 0 {
		return strconv.Itoa(r.StatusCode)
	}
	return r.Error
}

// Host returns the host of the probed URL.
func (r Result) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// Checker probes URLs concurrently. The zero value is usable.
type Checker struct {
	Client *http.Client
	// Workers bounds the number of concurrent requests, 10 when unset.
	Workers int
	// Timeout applies to each request, 10 seconds when unset.
	Timeout time.Duration
	// Method is the HTTP method to use, HEAD when unset.
	Method    string
	UserAgent string
	// Policy is DefaultPolicy when it allows nothing.
	Policy Policy
	// Kind labels the metrics of this checker, "stream" when unset.
	Kind string
	Log  *logrus.Logger
	// OnResult is called for every result in completion order. Calls are serialized.
	OnResult func(Result)
}

func (c *Checker) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return DefaultWorkers
}

func (c *Checker) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Checker) kind() string {
	if c.Kind != "" {
		return c.Kind
	}
	return "stream"
}

func (c *Checker) policy() Policy {
	if len(c.Policy.AllowedStatus) == 0 {
		return DefaultPolicy()
	}
	return c.Policy
}

func (c *Checker) logger() *logrus.Logger {
	if c.Log != nil {
		return c.Log
	}
	return &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
}

type job struct {
	index int
	url   string
}

// Check probes every URL once and returns the results ordered by submission index.
// Probe failures are recorded in the results, never returned.
func (c *Checker) Check(ctx context.Context, urls []string) []Result {
	jobs := make(chan job)
	results := make([]Result, 0, len(urls))
	log := c.logger()

	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := c.workers()
	if workers > len(urls) {
		workers = len(urls)
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				result := c.probe(ctx, j.index, j.url)

				mu.Lock()
				results = append(results, result)
				if c.OnResult != nil {
					c.OnResult(result)
				}
				mu.Unlock()

				log.WithFields(logrus.Fields{
					"url":     result.URL,
					"status":  result.Status(),
					"elapsed": result.Elapsed,
				}).Debugln("probed")
			}
		}()
	}

	for i, u := range urls {
		jobs <- job{index: i, url: u}
	}
	close(jobs)

	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	return results
}

// Reachable probes a single URL.
func (c *Checker) Reachable(ctx context.Context, rawURL string) bool {
	return c.probe(ctx, 0, rawURL).Reachable
}

func (c *Checker) probe(ctx context.Context, index int, rawURL string) (result Result) {
	result = Result{Index: index, URL: rawURL}
	start := time.Now()

	defer func() {
		result.Elapsed = time.Since(start)
		outcome := "failed"
		if result.Reachable {
			outcome = "reachable"
		}
		metrics.ProbeRequests.WithLabelValues(c.kind(), outcome).Inc()
		metrics.ProbeDuration.WithLabelValues(c.kind()).Observe(result.Elapsed.Seconds())
	}()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	method := c.Method
	if method == "" {
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	userAgent := c.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Error = Classify(err)
		return result
	}
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Reachable = c.policy().Allowed(resp.StatusCode)
	return result
}

// Classify maps a request error to its tag: TagTimeout, TagConnectionError, or the error text.
func Classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return TagTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TagTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return TagConnectionError
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TagConnectionError
	}

	return err.Error()
}
