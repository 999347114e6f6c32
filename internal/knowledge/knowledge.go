// Package knowledge holds the curated healthcare answers served for
// specific topics without calling a remote AI backend. It participates in
// the provider chain as its first, zero-latency member: it answers only
// when the message intent maps to a curated topic and defers to the AI
// providers otherwise.
package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/provider"
)

// ProviderID is recorded in analytics and cache entries for curated
// answers.
const ProviderID = "knowledge"

// Confidence for curated content sits above every AI provider: the text
// is reviewed, not generated.
const Confidence = 0.95

// CacheTTL is the longest in the system; curated content is static.
const CacheTTL = 24 * time.Hour

// Provider implements provider.Provider over the curated topic map.
type Provider struct{}

// ID implements provider.Provider.
func (Provider) ID() string { return ProviderID }

// Generate returns the curated answer for the prompt's intent and
// language, or an error so the chain advances to the AI backends.
func (Provider) Generate(_ context.Context, prompt provider.Prompt) (*provider.Result, error) {
	text, ok := Lookup(prompt.Intent, prompt.Language)
	if !ok {
		return nil, fmt.Errorf("no curated content for intent %q", prompt.Intent)
	}
	return &provider.Result{
		Text:       text,
		ProviderID: ProviderID,
		Confidence: Confidence,
		Succeeded:  true,
		CacheTTL:   CacheTTL,
	}, nil
}

// Lookup returns the curated answer for a topic in the given language.
func Lookup(intent classify.Intent, lang classify.Language) (string, bool) {
	byLang, ok := topics[intent]
	if !ok {
		return "", false
	}
	text, ok := byLang[lang]
	return text, ok
}

var topics = map[classify.Intent]map[classify.Language]string{
	classify.IntentHIV: {
		classify.LangEN: hivInfoEN,
		classify.LangTH: hivInfoTH,
	},
	classify.IntentPrEP: {
		classify.LangEN: prepInfoEN,
		classify.LangTH: prepInfoTH,
	},
	classify.IntentSTD: {
		classify.LangEN: stdInfoEN,
		classify.LangTH: stdInfoTH,
	},
}

const hivInfoEN = `🏥 **HIV Information**

HIV (Human Immunodeficiency Virus) attacks the immune system:

**Key Facts:**
• **Transmission**: Blood, semen, vaginal fluids, breast milk
• **Prevention**: Condoms, PrEP, regular testing
• **Treatment**: Antiretroviral therapy (ART) is highly effective
• **Testing**: Multiple test types with different window periods

**U=U**: Undetectable = Untransmittable. People with undetectable viral loads cannot transmit HIV sexually.

**Prevention Methods:**
• Use condoms consistently and correctly
• Get tested regularly (every 3-6 months if sexually active)
• Consider PrEP if at high risk
• Avoid sharing needles or injection equipment
• Get treated for other STDs (they increase HIV risk)`

const hivInfoTH = `🏥 **ข้อมูลเอชไอวี**

เอชไอวี (Human Immunodeficiency Virus) ทำลายระบบภูมิคุ้มกัน:

**ข้อมูลสำคัญ:**
• **การติดต่อ**: เลือด น้ำอสุจิ น้ำหล่อลื่นช่องคลอด น้ำนมแม่
• **การป้องกัน**: ถุงยางอนามัย PrEP ตรวจเลือดเป็นประจำ
• **การรักษา**: ยาต้านไวรัส (ART) มีประสิทธิภาพสูง
• **การตรวจ**: การตรวจหลายประเภทที่มีช่วงหน้าต่างแตกต่างกัน

**U=U**: ตรวจไม่พบ = ไม่ติดต่อ ผู้ที่มีปริมาณไวรัสตรวจไม่พบจะไม่ติดต่อเอชไอวีทางเพศสัมพันธ์

**วิธีการป้องกัน:**
• ใช้ถุงยางอนามัยอย่างถูกต้องและสม่ำเสมอ
• ตรวจเลือดเป็นประจำ (ทุก 3-6 เดือนหากมีเพศสัมพันธ์)
• พิจารณาใช้ PrEP หากมีความเสี่ยงสูง
• หลีกเลี่ยงการใช้เข็มฉีดร่วมกัน
• รักษาโรคติดต่อทางเพศสัมพันธ์อื่นๆ (เพิ่มความเสี่ยงเอชไอวี)`

const prepInfoEN = `🏥 **PrEP Information**

Pre-exposure prophylaxis (PrEP) prevents HIV infection:

**Effectiveness:**
• **99% effective** when taken as prescribed for sexual transmission
• **74% effective** for injection drug use

**Who Should Consider PrEP:**
• People with HIV-positive partners
• Multiple sexual partners
• Injection drug users
• Anyone at substantial risk of HIV

**Monitoring Required:**
• HIV testing every 3 months
• Kidney function tests
• STD screening
• Regular medical check-ups

**Important Notes:**
• Must be taken daily for maximum effectiveness
• Does not protect against other STDs
• Requires prescription from healthcare provider`

const prepInfoTH = `🏥 **ข้อมูล PrEP**

การป้องกันก่อนสัมผัส (PrEP) ป้องกันการติดเชื้อเอชไอวี:

**ประสิทธิภาพ:**
• **99% ประสิทธิภาพ** เมื่อทานตามแพทย์สั่งสำหรับการติดต่อทางเพศสัมพันธ์
• **74% ประสิทธิภาพ** สำหรับผู้ใช้ยาเสพติดฉีด

**ใครควรพิจารณาใช้ PrEP:**
• คนที่มีคู่นอนติดเชื้อเอชไอวี
• มีคู่นอนหลายคน
• ผู้ใช้ยาเสพติดฉีด
• ผู้ที่มีความเสี่ยงสูงต่อการติดเชื้อเอชไอวี

**การติดตามที่จำเป็น:**
• ตรวจเอชไอวีทุก 3 เดือน
• ตรวจการทำงานของไต
• ตรวจโรคติดต่อทางเพศสัมพันธ์
• ตรวจสุขภาพเป็นประจำ

**ข้อสำคัญ:**
• ต้องทานทุกวันเพื่อประสิทธิภาพสูงสุด
• ไม่ป้องกันโรคติดต่อทางเพศสัมพันธ์อื่นๆ
• ต้องมีใบสั่งยาจากแพทย์`

const stdInfoEN = `🏥 **STDs/STIs Information**

Sexually transmitted diseases prevention and care:

**Common STDs:**
• **Chlamydia** - Most common, often no symptoms, curable
• **Gonorrhea** - Bacterial infection, may be drug-resistant
• **Syphilis** - Stages of infection, highly contagious early
• **Herpes** - Viral, manageable but not curable
• **HPV** - Some cause warts, others can cause cancer

**Prevention:**
• Use condoms consistently and correctly
• Regular testing for sexually active individuals
• HPV and Hepatitis B vaccines available
• Open communication with partners

**Treatment:**
• Most bacterial STDs are curable with antibiotics
• Viral STDs are manageable with medication
• Early treatment prevents complications
• Partner notification and treatment important`

const stdInfoTH = `🏥 **ข้อมูลโรคติดต่อทางเพศสัมพันธ์**

การป้องกันและดูแลโรคติดต่อทางเพศสัมพันธ์:

**โรคที่พบบ่อย:**
• **คลาไมเดีย** - พบบ่อยที่สุด มักไม่มีอาการ รักษาหายได้
• **หนองใน** - การติดเชื้อแบคทีเรีย อาจดื้อยา
• **ซิฟิลิส** - มีระยะของการติดเชื้อ ติดต่อได้ง่ายในระยะแรก
• **เฮอร์ปีส** - เชื้อไวรัส ควบคุมได้แต่รักษาไม่หาย
• **HPV** - บางชนิดทำให้เกิดหูด บางชนิดอาจทำให้เกิดมะเร็ง

**การป้องกัน:**
• ใช้ถุงยางอนามัยอย่างถูกต้องและสม่ำเสมอ
• ตรวจสุขภาพเป็นประจำสำหรับผู้ที่มีเพศสัมพันธ์
• มีวัคซีน HPV และไวรัสตับอักเสบบี
• สื่อสารอย่างเปิดเผยกับคู่นอน

**การรักษา:**
• โรคแบคทีเรียส่วนใหญ่รักษาหายได้ด้วยยาปฏิชีวนะ
• โรคไวรัสควบคุมได้ด้วยยา
• การรักษาเร็วป้องกันภาวะแทรกซ้อน
• การแจ้งและรักษาคู่นอนสำคัญ`
