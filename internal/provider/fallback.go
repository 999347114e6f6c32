package provider

import (
	"context"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
)

// FallbackID is the provider id recorded for degraded responses.
const FallbackID = "fallback"

// FallbackConfidence is the fixed low confidence assigned to degraded
// responses so analytics can tell them apart from live answers.
const FallbackConfidence = 0.1

const fallbackTextEN = "I apologize, our system is currently experiencing issues. Please try again or contact our support team.\n\n⚠️ For medical emergencies, please contact healthcare providers immediately."

const fallbackTextTH = "เสียใจด้วย ขณะนี้ระบบมีปัญหา กรุณาลองใหม่อีกครั้งหรือติดต่อเจ้าหน้าที่ของเรา\n\n⚠️ สำหรับปัญหาเร่งด่วนทางการแพทย์ กรุณาติดต่อแพทย์หรือโรงพยาบาลทันที"

// StaticFallback is the terminal provider in the chain. It returns a
// fixed, language-appropriate apology and never fails, guaranteeing the
// pipeline always has a reply even with every real backend down.
type StaticFallback struct{}

// ID implements Provider.
func (StaticFallback) ID() string { return FallbackID }

// Generate implements Provider. The result is marked not-succeeded and
// carries no cache TTL: degraded answers must not be served broadly as if
// authoritative.
func (StaticFallback) Generate(_ context.Context, prompt Prompt) (*Result, error) {
	return &Result{
		Text:       FallbackText(prompt.Language),
		ProviderID: FallbackID,
		Confidence: FallbackConfidence,
		Succeeded:  false,
	}, nil
}

// FallbackText returns the canned apology for a language.
func FallbackText(lang classify.Language) string {
	if lang == classify.LangTH {
		return fallbackTextTH
	}
	return fallbackTextEN
}
