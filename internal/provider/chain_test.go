package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/convo"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func openAIReply(text string, tokens int) string {
	return `{"choices":[{"message":{"content":"` + text + `"}}],"usage":{"total_tokens":` + itoa(tokens) + `}}`
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func testHTTPProvider(t *testing.T, id, url string, conf float64, ttl time.Duration) *HTTPProvider {
	t.Helper()
	return NewHTTPProvider(HTTPConfig{
		ID:         id,
		URL:        url,
		Timeout:    2 * time.Second,
		Confidence: conf,
		CacheTTL:   ttl,
	}, zaptest.NewLogger(t))
}

func TestChainFirstProviderWins(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openAIReply("primary answer", 42)))
	})
	p1 := testHTTPProvider(t, "workers-ai", srv.URL, 0.9, time.Hour)

	chain := NewChain([]Provider{p1}, 10, zaptest.NewLogger(t))
	res := chain.Generate(context.Background(), "hello", nil, classify.Result{Language: classify.LangEN, Intent: classify.IntentGeneral})

	if !res.Succeeded {
		t.Fatal("Succeeded = false, want true")
	}
	if res.ProviderID != "workers-ai" {
		t.Errorf("ProviderID = %q, want workers-ai", res.ProviderID)
	}
	if res.Text != "primary answer" {
		t.Errorf("Text = %q, want 'primary answer'", res.Text)
	}
	if res.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d, want 42", res.TokensUsed)
	}
}

func TestChainAdvancesPastFailure(t *testing.T) {
	bad := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})
	good := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openAIReply("secondary answer", 17)))
	})

	p1 := testHTTPProvider(t, "workers-ai", bad.URL, 0.9, time.Hour)
	p2 := testHTTPProvider(t, "openai", good.URL, 0.8, 30*time.Minute)

	chain := NewChain([]Provider{p1, p2}, 10, zaptest.NewLogger(t))
	res := chain.Generate(context.Background(), "hello", nil, classify.Result{Language: classify.LangEN, Intent: classify.IntentGeneral})

	if !res.Succeeded {
		t.Fatal("Succeeded = false, want true")
	}
	if res.ProviderID != "openai" {
		t.Errorf("ProviderID = %q, want openai", res.ProviderID)
	}
	if res.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", res.Confidence)
	}
	if res.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v, want 30m", res.CacheTTL)
	}
}

func TestChainTimeoutAdvances(t *testing.T) {
	slow := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(openAIReply("too late", 1)))
	})
	fast := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openAIReply("prompt answer", 5)))
	})

	p1 := NewHTTPProvider(HTTPConfig{
		ID:         "slow",
		URL:        slow.URL,
		Timeout:    50 * time.Millisecond,
		Confidence: 0.9,
	}, zaptest.NewLogger(t))
	p2 := testHTTPProvider(t, "fast", fast.URL, 0.8, time.Hour)

	chain := NewChain([]Provider{p1, p2}, 10, zaptest.NewLogger(t))
	res := chain.Generate(context.Background(), "hello", nil, classify.Result{Language: classify.LangEN, Intent: classify.IntentGeneral})

	if res.ProviderID != "fast" {
		t.Errorf("ProviderID = %q, want fast (slow backend should time out)", res.ProviderID)
	}
}

func TestChainAllFailFallsBack(t *testing.T) {
	bad := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	p1 := testHTTPProvider(t, "workers-ai", bad.URL, 0.9, time.Hour)
	p2 := testHTTPProvider(t, "openai", bad.URL, 0.8, time.Hour)

	chain := NewChain([]Provider{p1, p2}, 10, zaptest.NewLogger(t))

	for _, lang := range []classify.Language{classify.LangEN, classify.LangTH} {
		res := chain.Generate(context.Background(), "hello", nil, classify.Result{Language: lang, Intent: classify.IntentGeneral})
		if res.Succeeded {
			t.Fatalf("lang %s: Succeeded = true, want false for static fallback", lang)
		}
		if res.ProviderID != FallbackID {
			t.Errorf("lang %s: ProviderID = %q, want %q", lang, res.ProviderID, FallbackID)
		}
		if res.Confidence != FallbackConfidence {
			t.Errorf("lang %s: Confidence = %v, want %v", lang, res.Confidence, FallbackConfidence)
		}
		if res.Text != FallbackText(lang) {
			t.Errorf("lang %s: fallback text mismatch", lang)
		}
		if res.CacheTTL != 0 {
			t.Errorf("lang %s: CacheTTL = %v, degraded answers must not be cached", lang, res.CacheTTL)
		}
	}
}

func TestChainEmptyProviderListFallsBack(t *testing.T) {
	chain := NewChain(nil, 10, zaptest.NewLogger(t))
	res := chain.Generate(context.Background(), "hello", nil, classify.Result{Language: classify.LangEN, Intent: classify.IntentGeneral})

	if res.Succeeded || res.ProviderID != FallbackID {
		t.Errorf("got %+v, want static fallback result", res)
	}
	if res.Text == "" {
		t.Error("fallback reply is empty")
	}
}

func TestBuildPromptTrimsHistory(t *testing.T) {
	history := make([]convo.Turn, 20)
	for i := range history {
		history[i] = convo.Turn{Role: convo.RoleUser, Content: "turn-" + itoa(i)}
	}

	prompt := BuildPrompt(classify.Result{Language: classify.LangEN, Intent: classify.IntentGeneral}, history, 6, "latest")
	if len(prompt.History) != 6 {
		t.Fatalf("prompt history = %d turns, want 6", len(prompt.History))
	}
	if prompt.History[0].Content != "turn-14" {
		t.Errorf("oldest kept turn = %q, want turn-14", prompt.History[0].Content)
	}
	if prompt.History[5].Content != "turn-19" {
		t.Errorf("newest kept turn = %q, want turn-19", prompt.History[5].Content)
	}
}

func TestBuildPromptSystemByLanguage(t *testing.T) {
	en := BuildPrompt(classify.Result{Language: classify.LangEN}, nil, 10, "hi")
	th := BuildPrompt(classify.Result{Language: classify.LangTH}, nil, 10, "hi")

	if !strings.Contains(en.System, "healthcare assistant") {
		t.Error("English system prompt missing domain instruction")
	}
	if !strings.Contains(th.System, "ผู้ช่วยด้านสุขภาพ") {
		t.Error("Thai system prompt missing domain instruction")
	}
}

func TestHTTPProviderSendsHistory(t *testing.T) {
	var gotBody string
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(openAIReply("ok", 1)))
	})

	p := testHTTPProvider(t, "workers-ai", srv.URL, 0.9, time.Hour)
	prompt := BuildPrompt(classify.Result{Language: classify.LangEN, Intent: classify.IntentGeneral}, []convo.Turn{
		{Role: convo.RoleUser, Content: "earlier question"},
		{Role: convo.RoleAssistant, Content: "earlier answer"},
	}, 10, "follow-up")

	if _, err := p.Generate(context.Background(), prompt); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"earlier question", "earlier answer", "follow-up", `"role":"assistant"`} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("request body missing %q", want)
		}
	}
}

func TestHTTPProviderCloudflareFormat(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"result":{"response":"cf answer"}}`))
	})
	p := testHTTPProvider(t, "workers-ai", srv.URL, 0.9, time.Hour)

	res, err := p.Generate(context.Background(), BuildPrompt(classify.Result{Language: classify.LangEN}, nil, 10, "hi"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "cf answer" {
		t.Errorf("Text = %q, want 'cf answer'", res.Text)
	}
	if res.TokensUsed == 0 {
		t.Error("TokensUsed = 0, want estimated token count when usage is absent")
	}
}

// An explicit temperature of zero must reach the backend unchanged; only
// a negative value selects the default.
func TestHTTPProviderZeroTemperatureHonored(t *testing.T) {
	var gotBody string
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(openAIReply("ok", 1)))
	})

	p := NewHTTPProvider(HTTPConfig{
		ID:          "workers-ai",
		URL:         srv.URL,
		Temperature: 0,
		Timeout:     2 * time.Second,
		Confidence:  0.9,
	}, zaptest.NewLogger(t))

	if _, err := p.Generate(context.Background(), BuildPrompt(classify.Result{Language: classify.LangEN}, nil, 10, "hi")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotBody, `"temperature":0`) {
		t.Errorf("request body = %s, want temperature 0", gotBody)
	}
	if strings.Contains(gotBody, `"temperature":0.7`) {
		t.Error("explicit zero temperature rewritten to the default")
	}
}

func TestHTTPProviderDefaultTemperature(t *testing.T) {
	var gotBody string
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(openAIReply("ok", 1)))
	})

	p := NewHTTPProvider(HTTPConfig{
		ID:          "workers-ai",
		URL:         srv.URL,
		Temperature: -1,
		Timeout:     2 * time.Second,
		Confidence:  0.9,
	}, zaptest.NewLogger(t))

	if _, err := p.Generate(context.Background(), BuildPrompt(classify.Result{Language: classify.LangEN}, nil, 10, "hi")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotBody, `"temperature":0.7`) {
		t.Errorf("request body = %s, want default temperature 0.7", gotBody)
	}
}

func TestHTTPProviderEmptyContentIsError(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openAIReply("", 3)))
	})
	p := testHTTPProvider(t, "workers-ai", srv.URL, 0.9, time.Hour)

	if _, err := p.Generate(context.Background(), BuildPrompt(classify.Result{Language: classify.LangEN}, nil, 10, "hi")); err == nil {
		t.Fatal("expected error for empty content, got nil")
	}
}
