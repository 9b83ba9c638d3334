package okx

import (
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// okx 的公开接口，不需要 apikey

type PublicClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewPublicClient() *PublicClient {
	return &PublicClient{
		baseURL: "https://www.okx.com/api/v5",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

const maxRetries = 3

// GetInstrumentsWithRetry 失败后按 2s、6s 退避重试
func (c *PublicClient) GetInstrumentsWithRetry(ctx context.Context, instType string) ([]RawInstrument, error) {
	var (
		instruments []RawInstrument
		err         error
	)
	backoff := 2 * time.Second
	for i := 0; i < maxRetries; i++ {
		instruments, err = c.GetInstruments(ctx, instType)
		if err == nil {
			return instruments, nil
		}
		logger.Warnf("get %s instruments failed (try %d): %v", instType, i+1, err)
		if i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 3
	}
	return nil, fmt.Errorf("get %s instruments after %d tries: %w", instType, maxRetries, err)
}

// GetInstruments instType: SPOT, SWAP, FUTURES
func (c *PublicClient) GetInstruments(ctx context.Context, instType string) ([]RawInstrument, error) {
	var instruments []RawInstrument
	if err := c.doPublicGet(ctx, "/public/instruments?instType="+instType, &instruments); err != nil {
		return nil, err
	}
	return instruments, nil
}

func (c *PublicClient) doPublicGet(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrVenueTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrVenueTransient, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http status %d", model.ErrVenueTransient, resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("decode okx response: %w", err)
	}
	if apiResp.Code != codeOK {
		return classifyCode(apiResp.Code, apiResp.Msg)
	}
	return json.Unmarshal(apiResp.Data, result)
}
