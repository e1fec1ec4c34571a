package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StackFetcher retrieves the raw bytes of a serialized image stack (.npy
// input plane or .h5 classifier export) from a backing store.
type StackFetcher interface {
	FetchStack(ctx context.Context, stackURL string) ([]byte, error)
}

// HTTPStackFetcher implements StackFetcher over plain HTTP(S)
type HTTPStackFetcher struct {
	client *http.Client
}

// NewHTTPStackFetcher creates an HTTP stack fetcher
func NewHTTPStackFetcher() StackFetcher {
	// Transport tuned for occasional single-file downloads, not fan-out
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		// Probability exports compress well
		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	return &HTTPStackFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

func (h *HTTPStackFetcher) FetchStack(ctx context.Context, stackURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", stackURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "application/octet-stream, */*")
	req.Header.Set("User-Agent", "Go-Cell-Segmenter/1.0")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	// Retry logic (3 attempts) - only retry on transient errors
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		resp, err = h.client.Do(req)

		if err != nil {
			lastErr = err
			// A spent deadline fails every remaining attempt too
			if ctx.Err() != nil {
				break
			}
		}

		if err == nil && resp != nil && resp.StatusCode == http.StatusOK {
			break
		}

		if err == nil && resp != nil {
			func() {
				defer resp.Body.Close()

				// 4xx client errors are non-retryable
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					lastErr = fmt.Errorf("client error: status code %d", resp.StatusCode)
					return
				}

				if resp.StatusCode >= 500 {
					lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
				}
			}()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				resp = nil
				break
			}
		}

		if attempt < 2 && (err != nil || (resp != nil && resp.StatusCode >= 500)) {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}

		if resp != nil && (err != nil || resp.StatusCode != http.StatusOK) {
			resp = nil
		}
	}

	if resp == nil || (err == nil && resp.StatusCode != http.StatusOK) {
		if lastErr != nil {
			return nil, fmt.Errorf("failed to fetch stack after 3 attempts: %w", lastErr)
		}
		return nil, fmt.Errorf("failed to fetch stack after 3 attempts: unknown error")
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty stack body from %s", stackURL)
	}

	return data, nil
}
