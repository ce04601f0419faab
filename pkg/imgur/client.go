package imgur

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"imgurdl/pkg/config"
	errs "imgurdl/pkg/errors"
	"imgurdl/pkg/logger"
	"imgurdl/pkg/retry"
)

// removedPath is where imgur redirects requests for deleted images. The
// response is a 200 with a placeholder image, so the redirect target is the
// only reliable signal.
const removedPath = "/removed.png"

// Client performs the HTTP requests of an album run: the page fetch and the
// image downloads. Requests carry browser-like headers because imgur rejects
// default client identifiers.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	retryCfg   *config.RetryConfig
	logger     logger.Logger
}

// NewClient creates a client from the HTTP and retry sections of the config
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTP.Timeout,
		},
		headers: map[string]string{
			"User-Agent": cfg.HTTP.UserAgent,
			"Accept":     cfg.HTTP.Accept,
			"Referer":    cfg.HTTP.Referer,
		},
		retryCfg: &cfg.Retry,
		logger:   log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// get performs a GET with the configured headers and maps failures onto the
// error taxonomy. The caller owns the response body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Newf(errs.ErrorTypeNetwork, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// getWithRetry wraps get in the configured retry policy. Network errors,
// 429 and 5xx responses are retried with exponential backoff.
func (c *Client) getWithRetry(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response

	err := retry.Do(func() error {
		var opErr error
		resp, opErr = c.get(ctx, url)
		return opErr
	}, &retry.Config{
		MaxAttempts: c.retryCfg.MaxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    c.retryCfg.BaseDelay,
			MaxDelay:     c.retryCfg.MaxDelay,
			Multiplier:   c.retryCfg.Multiplier,
			JitterFactor: 0.1,
		},
		RetryIf: retry.DefaultRetryIf,
		Context: ctx,
		Logger:  c.logger,
	})

	return resp, err
}

// FetchAlbumPage retrieves the album page body as text. Any failure here is
// a fetch error: the run has no album data without the page.
func (c *Client) FetchAlbumPage(ctx context.Context, url string) (string, error) {
	resp, err := c.getWithRetry(ctx, url)
	if err != nil {
		return "", errs.Newf(errs.ErrorTypeFetch, "error reading album page %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Newf(errs.ErrorTypeFetch, "error reading album page body: %v", err)
	}

	return string(body), nil
}

// DownloadImage downloads one image and returns its bytes along with the
// response content type
func (c *Client) DownloadImage(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := c.getWithRetry(ctx, url)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	// A redirect to the placeholder means the image is gone
	if strings.HasSuffix(resp.Request.URL.Path, removedPath) {
		return nil, "", errs.New(errs.ErrorTypeNotFound, "image has been removed").WithCode(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errs.Newf(errs.ErrorTypeNetwork, "failed to read image data: %v", err)
	}

	c.logger.DebugWithFields("image downloaded", map[string]interface{}{
		"url":  url,
		"size": len(data),
	})

	return data, resp.Header.Get("Content-Type"), nil
}

// checkResponseStatus maps HTTP response statuses onto typed errors
func checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, "resource not found").WithCode(resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, "rate limit exceeded").WithCode(resp.StatusCode)
	case resp.StatusCode >= 500:
		return errs.New(errs.ErrorTypeServerError, "server error").WithCode(resp.StatusCode)
	case resp.StatusCode >= 400:
		return errs.Newf(errs.ErrorTypeUnknown, "unexpected status code: %d", resp.StatusCode).WithCode(resp.StatusCode)
	default:
		return nil
	}
}
