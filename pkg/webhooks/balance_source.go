package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	defaultBalanceTimeout = 10 * time.Second
	maxAccountBytes       = 1 << 20
)

var ErrBalanceUnavailable = errors.New("balance unavailable")

// AccessAPIBalanceSource reads balances from a Flow Access node REST endpoint
// (GET /v1/accounts/{address}).
type AccessAPIBalanceSource struct {
	baseURL string
	client  *http.Client
}

func NewAccessAPIBalanceSource(baseURL string, timeout time.Duration) *AccessAPIBalanceSource {
	if timeout <= 0 {
		timeout = defaultBalanceTimeout
	}

	return &AccessAPIBalanceSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type accountResponse struct {
	Address string `json:"address"`
	Balance any    `json:"balance"`
}

func (s *AccessAPIBalanceSource) Balance(ctx context.Context, address string) (uint64, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s", s.baseURL, strings.TrimPrefix(address, "0x"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build account request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch account %s: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: account %s returned status %d", ErrBalanceUnavailable, address, resp.StatusCode)
	}

	var account accountResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAccountBytes)).Decode(&account); err != nil {
		return 0, fmt.Errorf("failed to decode account %s: %w", address, err)
	}

	if account.Balance == nil {
		return 0, fmt.Errorf("%w: account %s has no balance field", ErrBalanceUnavailable, address)
	}

	balance, err := cast.ToUint64E(account.Balance)
	if err != nil {
		return 0, fmt.Errorf("%w: account %s: %w", ErrBalanceUnavailable, address, err)
	}

	return balance, nil
}
