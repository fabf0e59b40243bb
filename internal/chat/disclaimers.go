package chat

import "strings"

const globalDisclaimer = `
Growth Hub provides AI-guided support and coaching for personal growth and relationships.

IMPORTANT DISCLAIMERS:
• This is NOT therapy, medical treatment, or professional mental health services
• AI responses are suggestions only - you are responsible for all decisions
• We are not doctors, therapists, or licensed mental health professionals
• If you are in crisis or experiencing suicidal thoughts, please contact emergency services or a crisis helpline immediately
• Growth Hub cannot replace professional mental health care
• For serious mental health issues, please consult with a licensed therapist or psychiatrist
`

const crisisDisclaimer = `
IF YOU ARE IN CRISIS OR IMMEDIATE DANGER:

• United States: National Suicide Prevention Lifeline 988 (call or text)
• United States: Crisis Text Line - Text HOME to 741741
• Worldwide: findahelpline.com

Do NOT rely on Growth Hub for mental health emergencies. Reach out to professional help immediately.
`

const dataConsent = `
By using Growth Hub, you agree that:
• Conversations are processed by AI services (Groq, OpenRouter, or OpenAI depending on your settings)
• Your API key (if provided) is used only to call the AI service you selected
• Conversations are stored by this service so the coach can remember context
• You are responsible for the privacy of your own API keys
`

const creditsExhausted = `
Your free credits have been used.

Choose your next step:

Option 1: Join GrowthPlus
  10,000 additional credits
  Plus: All modules, courses, and features

Option 2: Get Free API Access
  Completely free with Groq or OpenRouter
  Takes 2 minutes to set up
`

// Disclaimers returns the notices a user must see before chatting.
func Disclaimers() []string {
	return []string{
		strings.TrimSpace(globalDisclaimer),
		strings.TrimSpace(crisisDisclaimer),
		strings.TrimSpace(dataConsent),
	}
}

// CreditsExhaustedNotice is shown when the trial runs out.
func CreditsExhaustedNotice() string {
	return strings.TrimSpace(creditsExhausted)
}
