package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiModels are tried in order until one answers.
var geminiModels = []string{
	"gemini-2.0-flash-001",
	"gemini-2.0-flash",
	"gemini-2.5-flash",
	"gemini-flash-latest",
}

// GeminiForecaster asks Gemini for next month's marketplace figures.
type GeminiForecaster struct {
	apiKey string
	http   *resty.Client
	models []string
	logger *zap.Logger
}

func NewGeminiForecaster(apiKey string, logger *zap.Logger) *GeminiForecaster {
	return newGeminiForecaster(geminiBaseURL, apiKey, logger)
}

func newGeminiForecaster(baseURL, apiKey string, logger *zap.Logger) *GeminiForecaster {
	return &GeminiForecaster{
		apiKey: apiKey,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json"),
		models: geminiModels,
		logger: logger.Named("gemini"),
	}
}

func (g *GeminiForecaster) Forecast(ctx context.Context, in domain.ForecastInput) (*domain.Forecast, error) {
	if g.apiKey == "" {
		return nil, domain.NewError(domain.ErrUnavailable, "FORECAST_UNAVAILABLE", "GEMINI_API_KEY is not configured")
	}
	prompt, err := forecastPrompt(in)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, model := range g.models {
		text, err := g.generate(ctx, model, prompt)
		if err != nil {
			lastErr = err
			g.logger.Warn("model failed", zap.String("model", model), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		var f domain.Forecast
		if err := json.Unmarshal([]byte(cleanJSONResponse(text)), &f); err != nil {
			lastErr = fmt.Errorf("failed to parse JSON from %s: %w", model, err)
			continue
		}
		f.Model = model
		g.logger.Info("forecast generated", zap.String("model", model), zap.String("month", in.TargetMonth))
		return &f, nil
	}
	return nil, fmt.Errorf("all models failed: %w", lastErr)
}

func (g *GeminiForecaster) generate(ctx context.Context, model, prompt string) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature": 0.1,
			"topP":        0.8,
			"topK":        40,
		},
	}
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(body).
		Post(fmt.Sprintf("/models/%s:generateContent", model))
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode(), truncate(resp.String(), 300))
	}
	text := gjson.GetBytes(resp.Body(), "candidates.0.content.parts.0.text")
	if !text.Exists() || text.String() == "" {
		return "", errors.New("no text in response")
	}
	return text.String(), nil
}

func forecastPrompt(in domain.ForecastInput) (string, error) {
	history, err := json.Marshal(in.History)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`You are the growth analyst of a Japanese care-staff shift marketplace.
Using the monthly history and the operator's plan below, forecast the target month.

Target month: %s
Advertising budget (JPY): %d
Planned new facilities: %d
Planned job postings: %d
Operator notes: %s

Monthly history (oldest first):
%s

Return strict JSON with structure:
{
  "predicted_facilities": number,
  "predicted_jobs": number,
  "predicted_workers": number,
  "predicted_matches": number,
  "matching_period_hours": number,
  "confidence": number,
  "summary": string
}

IMPORTANT: confidence is between 0 and 1, summary is Japanese and under 400 characters.
Return ONLY the raw JSON without any markdown formatting, code blocks, or additional text.`,
		in.TargetMonth, in.AdBudgetYen, in.PlannedFacilities, in.PlannedJobs, in.Notes, history), nil
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		content = content[start : end+1]
	}
	return strings.TrimSpace(content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
