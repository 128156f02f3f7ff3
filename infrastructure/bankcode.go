package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

const (
	bankcodeFields   = "code,name,hiragana"
	bankcodePageSize = 2000
	// bankcodeMaxPages guards the cursor loop against a server that never clears hasNext.
	bankcodeMaxPages = 50
)

// BankcodeClient reads the BankcodeJP v3 directory.
type BankcodeClient struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewBankcodeClient(baseURL, apiKey string, logger *zap.Logger) *BankcodeClient {
	return &BankcodeClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(20*time.Second).
			SetHeader("apikey", apiKey).
			SetHeader("Accept", "application/json"),
		logger: logger.Named("bankcode"),
	}
}

func (c *BankcodeClient) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(path)
	if err != nil {
		return nil, fmt.Errorf("bankcode request %s: %w", path, err)
	}
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		c.logger.Warn("rate limit exceeded", zap.String("path", path))
		return nil, domain.NewError(domain.ErrUnavailable, "BANK_API_RATE_LIMITED", "BankcodeJP rate limit exceeded")
	case resp.IsError():
		return nil, fmt.Errorf("bankcode %s returned %d", path, resp.StatusCode())
	}
	return resp.Body(), nil
}

func parseBanks(body []byte) []domain.Bank {
	var out []domain.Bank
	gjson.GetBytes(body, "banks").ForEach(func(_, b gjson.Result) bool {
		hira := b.Get("hiragana").String()
		out = append(out, domain.Bank{
			Code: b.Get("code").String(),
			Name: b.Get("name").String(),
			Kana: domain.HiraganaToKatakana(hira),
			Hira: hira,
		})
		return true
	})
	return out
}

func parseBranches(bankCode string, body []byte) []domain.Branch {
	var out []domain.Branch
	gjson.GetBytes(body, "branches").ForEach(func(_, b gjson.Result) bool {
		hira := b.Get("hiragana").String()
		out = append(out, domain.Branch{
			BankCode: bankCode,
			Code:     b.Get("code").String(),
			Name:     b.Get("name").String(),
			Kana:     domain.HiraganaToKatakana(hira),
			Hira:     hira,
		})
		return true
	})
	return out
}

func (c *BankcodeClient) SearchBanks(ctx context.Context, query string, limit int) ([]domain.Bank, error) {
	body, err := c.get(ctx, "/freeword/banks", map[string]string{
		"freeword": query,
		"limit":    fmt.Sprint(limit),
		"fields":   bankcodeFields,
	})
	if err != nil {
		return nil, err
	}
	return parseBanks(body), nil
}

func (c *BankcodeClient) SearchBranches(ctx context.Context, bankCode, query string, limit int) ([]domain.Branch, error) {
	body, err := c.get(ctx, "/freeword/banks/"+bankCode+"/branches", map[string]string{
		"freeword": query,
		"limit":    fmt.Sprint(limit),
		"fields":   bankcodeFields,
	})
	if err != nil {
		return nil, err
	}
	return parseBranches(bankCode, body), nil
}

// paginate follows nextCursor until hasNext is false.
func (c *BankcodeClient) paginate(ctx context.Context, path string, page func([]byte)) error {
	cursor := ""
	for i := 0; i < bankcodeMaxPages; i++ {
		params := map[string]string{"limit": fmt.Sprint(bankcodePageSize), "fields": bankcodeFields}
		if cursor != "" {
			params["cursor"] = cursor
		}
		body, err := c.get(ctx, path, params)
		if err != nil {
			return err
		}
		page(body)
		if !gjson.GetBytes(body, "hasNext").Bool() {
			return nil
		}
		cursor = gjson.GetBytes(body, "nextCursor").String()
		if cursor == "" {
			return nil
		}
	}
	return nil
}

func (c *BankcodeClient) AllBanks(ctx context.Context) ([]domain.Bank, error) {
	var out []domain.Bank
	err := c.paginate(ctx, "/banks", func(body []byte) { out = append(out, parseBanks(body)...) })
	return out, err
}

func (c *BankcodeClient) AllBranches(ctx context.Context, bankCode string) ([]domain.Branch, error) {
	var out []domain.Branch
	err := c.paginate(ctx, "/banks/"+bankCode+"/branches", func(body []byte) {
		out = append(out, parseBranches(bankCode, body)...)
	})
	return out, err
}
