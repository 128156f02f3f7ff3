package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func TestGeminiForecaster_FallsBackToNextModel(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		if strings.Contains(r.URL.Path, "gemini-2.0-flash-001") {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		answer := "```json\n{\"predicted_jobs\": 120, \"confidence\": 0.7, \"summary\": \"増加見込み\"}\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": answer}}},
			}},
		})
	}))
	defer srv.Close()

	g := newGeminiForecaster(srv.URL, "k", zap.NewNop())
	f, err := g.Forecast(context.Background(), domain.ForecastInput{TargetMonth: "2025-04"})
	require.NoError(t, err)
	assert.Equal(t, float64(120), f.PredictedJobs)
	assert.Equal(t, 0.7, f.Confidence)
	assert.Equal(t, "gemini-2.0-flash", f.Model)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGeminiForecaster_NoKey(t *testing.T) {
	g := NewGeminiForecaster("", zap.NewNop())
	_, err := g.Forecast(context.Background(), domain.ForecastInput{TargetMonth: "2025-04"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONResponse("Here you go:\n```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONResponse(`  {"a":1}  `))
}

func TestResendMailer_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		var body resendEmail
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "noreply@example.jp", body.From)
		assert.Equal(t, []string{"a@example.jp"}, body.To)
		assert.Equal(t, "件名", body.Subject)
		_, _ = io.WriteString(w, `{"id":"em_1"}`)
	}))
	defer srv.Close()

	m := newResendMailer(srv.URL, "re_test", "noreply@example.jp", zap.NewNop())
	err := m.Send(context.Background(), application.Email{To: []string{"a@example.jp"}, Subject: "件名", Body: "本文"})
	assert.NoError(t, err)
}

func TestResendMailer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"invalid to"}`)
	}))
	defer srv.Close()

	m := newResendMailer(srv.URL, "re_test", "noreply@example.jp", zap.NewNop())
	err := m.Send(context.Background(), application.Email{To: []string{"x"}, Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestBankcodeClient_SearchBanks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/freeword/banks", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "みずほ", r.URL.Query().Get("freeword"))
		_, _ = io.WriteString(w, `{"banks":[{"code":"0001","name":"みずほ","hiragana":"みずほ"}]}`)
	}))
	defer srv.Close()

	c := NewBankcodeClient(srv.URL, "secret", zap.NewNop())
	banks, err := c.SearchBanks(context.Background(), "みずほ", 10)
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, "0001", banks[0].Code)
	assert.Equal(t, "ミズホ", banks[0].Kana)
}

func TestBankcodeClient_AllBranchesFollowsCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/banks/0001/branches", r.URL.Path)
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"branches":[{"code":"001","name":"東京","hiragana":"とうきょう"}],"hasNext":true,"nextCursor":"c2"}`)
			return
		}
		assert.Equal(t, "c2", r.URL.Query().Get("cursor"))
		_, _ = io.WriteString(w, `{"branches":[{"code":"004","name":"丸の内","hiragana":"まるのうち"}],"hasNext":false}`)
	}))
	defer srv.Close()

	c := NewBankcodeClient(srv.URL, "secret", zap.NewNop())
	branches, err := c.AllBranches(context.Background(), "0001")
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "0001", branches[1].BankCode)
	assert.Equal(t, "004", branches[1].Code)
}

func TestBankcodeClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewBankcodeClient(srv.URL, "secret", zap.NewNop())
	_, err := c.AllBanks(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestLPStorageFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/3/index.html" {
			_, _ = io.WriteString(w, "<html><body>lp</body></html>")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewLPStorageFetcher(srv.URL)
	html, err := f.FetchIndexHTML(context.Background(), 3)
	require.NoError(t, err)
	assert.Contains(t, html, "lp")

	_, err = f.FetchIndexHTML(context.Background(), 4)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
