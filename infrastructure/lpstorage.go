package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"shiftmatch/domain"
)

// maxLPHTMLBytes caps the body read from storage; tag checks only need the document head and body.
const maxLPHTMLBytes = 5 << 20

// LPStorageFetcher downloads published landing pages from public object storage.
type LPStorageFetcher struct {
	http *resty.Client
}

func NewLPStorageFetcher(baseURL string) *LPStorageFetcher {
	return &LPStorageFetcher{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
	}
}

func (f *LPStorageFetcher) FetchIndexHTML(ctx context.Context, lpNumber int) (string, error) {
	resp, err := f.http.R().SetContext(ctx).Get(fmt.Sprintf("/%d/index.html", lpNumber))
	if err != nil {
		return "", fmt.Errorf("fetch lp %d: %w", lpNumber, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return "", domain.NotFound("landing page html")
	case resp.IsError():
		return "", fmt.Errorf("fetch lp %d: status %d", lpNumber, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) > maxLPHTMLBytes {
		body = body[:maxLPHTMLBytes]
	}
	return string(body), nil
}
