package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// Request describes one HTTP request to be performed by the client.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the materialized result of a Request.
type Response struct {
	Request        *Request
	URL            string // final URL after redirects
	StatusCode     int
	Headers        http.Header
	Body           []byte
	ContentType    string
	Duration       time.Duration
	RedirectedFrom []string
}

// IsText reports whether the response body is textual and therefore a
// candidate for parsing and auditing.
func (r *Response) IsText() bool {
	ct := strings.ToLower(r.ContentType)
	if strings.HasPrefix(ct, "text/") {
		return true
	}
	for _, marker := range []string{"json", "javascript", "ecmascript", "xml", "html", "x-www-form-urlencoded"} {
		if strings.Contains(ct, marker) {
			return true
		}
	}
	return false
}

// IsJavaScript reports whether the body should be treated as script code.
func (r *Response) IsJavaScript() bool {
	ct := strings.ToLower(r.ContentType)
	return strings.Contains(ct, "javascript") || strings.Contains(ct, "ecmascript")
}

// IsHTML reports whether the body should be parsed as an HTML document.
func (r *Response) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "html")
}

// Handler receives the outcome of a queued request. Handlers run on
// worker goroutines during RunQueued and may queue follow-up requests.
type Handler func(*Response, error)

// Observer is notified of every successful response, whether the request
// ran synchronously through Do or was resolved from the queue. Used by
// the trainer to discover new page state.
type Observer func(*Response)

type queuedRequest struct {
	request *Request
	handler Handler
}

// Client executes requests against the target. Requests are either run
// synchronously through Do, or queued and later resolved in bulk by
// RunQueued ("harvesting"). All counters survive across batches and are
// zeroed only by Reset.
type Client struct {
	httpClient     *http.Client
	maxConcurrency int
	limiter        *rate.Limiter

	mu      sync.Mutex
	backlog []queuedRequest

	observerMu   sync.Mutex
	observers    map[int]Observer
	nextObserver int

	requestCount  atomic.Int64
	responseCount atomic.Int64
	timeoutCount  atomic.Int64
	totalTimeMS   atomic.Int64

	batchStart   atomic.Int64 // unix nanos of the current harvest
	batchCount   atomic.Int64
	batchTimeMS  atomic.Int64
}

// NewClient builds a client honouring the configured http version, the
// given concurrency ceiling and an optional requests-per-second cap
// (zero means unlimited).
func NewClient(maxConcurrency int, requestsPerSecond float64) *Client {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		httpClient: &http.Client{
			Transport: createRoundTripper(),
		},
		maxConcurrency: maxConcurrency,
		limiter:        limiter,
		observers:      make(map[int]Observer),
	}
}

// Queue schedules a request for the next harvest.
func (c *Client) Queue(req *Request, handler Handler) {
	c.mu.Lock()
	c.backlog = append(c.backlog, queuedRequest{request: req, handler: handler})
	c.mu.Unlock()
}

// QueueLen returns the number of requests waiting for the next harvest.
func (c *Client) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.backlog)
}

// RunQueued resolves every queued request, including follow-ups queued
// by handlers while the batch runs, and returns once the backlog is
// empty. Handlers are invoked from worker goroutines.
func (c *Client) RunQueued() {
	c.batchStart.Store(time.Now().UnixNano())
	c.batchCount.Store(0)
	c.batchTimeMS.Store(0)

	for {
		c.mu.Lock()
		batch := c.backlog
		c.backlog = nil
		c.mu.Unlock()
		if len(batch) == 0 {
			return
		}

		p := pool.New().WithMaxGoroutines(c.maxConcurrency)
		for _, qr := range batch {
			qr := qr
			p.Go(func() {
				if c.limiter != nil {
					if err := c.limiter.Wait(context.Background()); err != nil {
						log.Debug().Err(err).Msg("Rate limiter interrupted")
					}
				}
				resp, err := c.Do(qr.request)
				if qr.handler != nil {
					qr.handler(resp, err)
				}
			})
		}
		p.Wait()
	}
}

// Do performs the request synchronously and updates the counters.
func (c *Client) Do(req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	timeout := time.Duration(viper.GetInt("http.timeout")) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", viper.GetString("http.user_agent"))
	}
	for key, value := range viper.GetStringMapString("http.headers") {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	// The redirect chain is collected per request, so Do works on a
	// shallow copy of the shared client.
	var redirectedFrom []string
	httpClient := *c.httpClient
	maxRedirects := viper.GetInt("http.max_redirects")
	httpClient.CheckRedirect = func(next *http.Request, via []*http.Request) error {
		redirectedFrom = append(redirectedFrom, via[len(via)-1].URL.String())
		if maxRedirects > 0 && len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.requestCount.Add(1)
	start := time.Now()
	httpResp, err := httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			c.timeoutCount.Add(1)
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	c.responseCount.Add(1)
	c.totalTimeMS.Add(duration.Milliseconds())
	c.batchCount.Add(1)
	c.batchTimeMS.Add(duration.Milliseconds())

	resp := &Response{
		Request:        req,
		URL:            httpResp.Request.URL.String(),
		StatusCode:     httpResp.StatusCode,
		Headers:        httpResp.Header,
		Body:           bodyBytes,
		ContentType:    httpResp.Header.Get("Content-Type"),
		Duration:       duration,
		RedirectedFrom: redirectedFrom,
	}
	c.notifyObservers(resp)
	return resp, nil
}

// Get is a convenience wrapper around Do.
func (c *Client) Get(url string) (*Response, error) {
	return c.Do(&Request{Method: http.MethodGet, URL: url})
}

// OnResponse registers an observer and returns its removal function.
func (c *Client) OnResponse(fn Observer) func() {
	c.observerMu.Lock()
	defer c.observerMu.Unlock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	return func() {
		c.observerMu.Lock()
		defer c.observerMu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Client) notifyObservers(resp *Response) {
	c.observerMu.Lock()
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.observerMu.Unlock()
	for _, fn := range observers {
		fn(resp)
	}
}

// Reset zeroes every counter and drops the backlog and observers. Must
// run before the client is reused by a new scan.
func (c *Client) Reset() {
	c.mu.Lock()
	c.backlog = nil
	c.mu.Unlock()

	c.observerMu.Lock()
	c.observers = make(map[int]Observer)
	c.observerMu.Unlock()

	c.requestCount.Store(0)
	c.responseCount.Store(0)
	c.timeoutCount.Store(0)
	c.totalTimeMS.Store(0)
	c.batchStart.Store(0)
	c.batchCount.Store(0)
	c.batchTimeMS.Store(0)
}

func (c *Client) RequestCount() int64  { return c.requestCount.Load() }
func (c *Client) ResponseCount() int64 { return c.responseCount.Load() }
func (c *Client) TimeoutCount() int64  { return c.timeoutCount.Load() }
func (c *Client) MaxConcurrency() int  { return c.maxConcurrency }

// AverageResponseTime is computed over every response since the last Reset.
func (c *Client) AverageResponseTime() time.Duration {
	count := c.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(c.totalTimeMS.Load()/count) * time.Millisecond
}

// CurrentResponseCount counts responses within the current harvest batch.
func (c *Client) CurrentResponseCount() int64 {
	return c.batchCount.Load()
}

// CurrentResponseTime is the mean response time of the current batch.
func (c *Client) CurrentResponseTime() time.Duration {
	count := c.batchCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(c.batchTimeMS.Load()/count) * time.Millisecond
}

// CurrentResponsesPerSecond derives throughput from the current batch.
func (c *Client) CurrentResponsesPerSecond() float64 {
	start := c.batchStart.Load()
	if start == 0 {
		return 0
	}
	elapsed := time.Since(time.Unix(0, start)).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.batchCount.Load()) / elapsed
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
