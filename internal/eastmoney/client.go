package eastmoney

import (
	"net/http"
	"time"

	"github.com/camuig/etf-rotator/internal/logger"
)

// Client fetches daily ETF bars from the Eastmoney quote API.
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log,
	}
}
