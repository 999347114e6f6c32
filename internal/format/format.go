// Package format turns a raw provider result into the final reply text:
// canned fallback for degraded results, otherwise the generated answer
// with the resources block (sensitive topics only) and the medical
// disclaimer appended, disclaimer always last.
package format

import (
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/provider"
)

const disclaimerEN = "\n\n⚠️ This information is for educational purposes only. Always consult healthcare professionals for medical advice."

const disclaimerTH = "\n\n⚠️ ข้อมูลนี้เพื่อการศึกษาเท่านั้น กรุณาปรึกษาแพทย์เสมอสำหรับคำแนะนำทางการแพทย์"

const resourcesEN = "\n\n🏥 Additional Resources:\n• Department of Disease Control, Thailand\n• ACCESS Foundation\n• Local healthcare providers"

const resourcesTH = "\n\n🏥 ทรัพยากรเพิ่มเติม:\n• กรมควบคุมโรค กระทรวงสาธารณสุข\n• มูลนิธิ ACCESS\n• โรงพยาบาลใกล้บ้าน"

const validationReplyEN = "Please send a short text message describing your question, and I'll do my best to help."

const validationReplyTH = "กรุณาส่งข้อความสั้นๆ อธิบายคำถามของคุณ แล้วฉันจะช่วยอย่างเต็มที่"

// WelcomeMessage greets new followers in both languages.
const WelcomeMessage = `🏥 สวัสดีครับ/ค่ะ! ยินดีต้อนรับสู่ Bloodplusfight Healthcare Assistant

ฉันสามารถช่วยให้ข้อมูลเกี่ยวกับ:
• เอชไอวี (HIV) และการป้องกัน
• PrEP (การป้องกันก่อนสัมผัส)
• โรคติดต่อทางเพศสัมพันธ์ (STDs/STIs)
• คำแนะนำด้านสุขภาพทั่วไป

🌟 Hello! Welcome to Bloodplusfight Healthcare Assistant

I can help with information about:
• HIV and prevention
• PrEP (Pre-exposure prophylaxis)
• STDs/STIs
• General health guidance

⚠️ ข้อมูลนี้เพื่อการศึกษาเท่านั้น กรุณาปรึกษาแพทย์เสมอ
⚠️ This information is for educational purposes only. Always consult healthcare professionals.`

// Format builds the final reply for a provider result. Degraded results
// get the canned apology as-is: the fallback text already carries its own
// warning and must not accumulate a second disclaimer.
func Format(res *provider.Result, intent classify.Intent, lang classify.Language) string {
	if !res.Succeeded {
		return provider.FallbackText(lang)
	}

	text := res.Text
	if classify.Sensitive(intent) {
		text += resources(lang)
	}
	return text + disclaimer(lang)
}

// ValidationReply is the fixed answer for empty or oversized input.
func ValidationReply(lang classify.Language) string {
	if lang == classify.LangTH {
		return validationReplyTH
	}
	return validationReplyEN
}

func disclaimer(lang classify.Language) string {
	if lang == classify.LangTH {
		return disclaimerTH
	}
	return disclaimerEN
}

func resources(lang classify.Language) string {
	if lang == classify.LangTH {
		return resourcesTH
	}
	return resourcesEN
}
