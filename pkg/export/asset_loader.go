package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// MaxAssetBytes bounds downloaded template images.
const MaxAssetBytes = 8 << 20

// ErrAssetUnavailable is returned when an image cannot be fetched.
var ErrAssetUnavailable = errors.New("asset unavailable")

// AssetLoader fetches remote template images.
type AssetLoader interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

// HTTPAssetLoader downloads images over HTTP.
type HTTPAssetLoader struct {
	client *resty.Client
}

// NewHTTPAssetLoader builds a loader bounded by timeout.
func NewHTTPAssetLoader(timeout time.Duration) *HTTPAssetLoader {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetResponseBodyLimit(MaxAssetBytes).
		SetHeader("Accept", "image/png, image/jpeg, image/gif")
	return &HTTPAssetLoader{client: client}
}

// Load fetches url and returns its body.
func (l *HTTPAssetLoader) Load(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: unsupported url %q", ErrAssetUnavailable, url)
	}
	resp, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrAssetUnavailable, url, resp.StatusCode())
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty body", ErrAssetUnavailable, url)
	}
	return resp.Body(), nil
}
