package provider

import (
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/convo"
)

// System prompts pin the assistant to the healthcare domain, its tone and
// its refer-to-a-professional policy. One block per supported language.
const systemPromptEN = `You are a healthcare assistant specializing in HIV, STDs/STIs, and prevention.
Provide accurate, helpful, and easy-to-understand information.
Focus on prevention, health maintenance, and risk reduction.
Use clear, accessible language without overly complex medical terminology.
Always recommend consulting healthcare professionals for diagnosis and treatment.`

const systemPromptTH = `คุณเป็นผู้ช่วยด้านสุขภาพที่เชี่ยวชาญเรื่องเอชไอวี โรคติดต่อทางเพศสัมพันธ์ และการป้องกัน
ให้ข้อมูลที่ถูกต้อง เป็นประโยชน์ และเข้าใจง่าย
เน้นการป้องกัน การดูแลสุขภาพ และการลดความเสี่ยง
ใช้ภาษาไทยที่เข้าใจง่าย ไม่ใช้คำศัพท์ทางการแพทย์ที่ซับซ้อนเกินไป
เสมอให้คำแนะนำให้ปรึกษาแพทย์สำหรับการวินิจฉัยและการรักษา`

// BuildPrompt assembles the generation prompt: the fixed instruction
// block for the resolved language, the last historyTurns turns of
// context, and the current message. historyTurns is independent of the
// conversation window capacity and may be smaller.
func BuildPrompt(cls classify.Result, history []convo.Turn, historyTurns int, message string) Prompt {
	system := systemPromptEN
	if cls.Language == classify.LangTH {
		system = systemPromptTH
	}
	if historyTurns > 0 && len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	return Prompt{
		System:   system,
		History:  history,
		Message:  message,
		Language: cls.Language,
		Intent:   cls.Intent,
	}
}
