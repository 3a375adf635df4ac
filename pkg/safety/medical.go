package safety

import (
	"strings"

	"chatbot-engine-be/pkg/store"
)

const MedicalDisclaimer = "\n\n⚠️ MEDICAL DISCLAIMER: This AI assistant provides general information only and is not a substitute for professional medical advice, diagnosis, or treatment. Always consult qualified healthcare professionals for medical concerns. Never disregard professional medical advice or delay seeking it because of information from this AI."

var medicalKeywords = []string{
	"symptom", "diagnosis", "treatment", "medicine", "drug", "medication",
	"disease", "illness", "condition", "pain", "fever", "infection",
	"doctor", "physician", "hospital", "clinic", "medical", "health",
	"therapy", "surgery", "prescription", "dosage", "side effect",
}

func mentionsMedical(lower string) bool {
	for _, k := range medicalKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// RequiresDisclaimer reports whether a reply to message, grounded on
// entries, must carry the medical disclaimer.
func RequiresDisclaimer(message string, entries []store.KnowledgeEntry) bool {
	if mentionsMedical(strings.ToLower(message)) {
		return true
	}
	for _, e := range entries {
		if e.Domain == "medical" || e.RiskLevel == store.RiskHigh {
			return true
		}
		if mentionsMedical(strings.ToLower(e.Topic)) {
			return true
		}
	}
	return false
}

// AddDisclaimer appends the disclaimer once
func AddDisclaimer(reply string) string {
	if strings.Contains(reply, "MEDICAL DISCLAIMER:") {
		return reply
	}
	return reply + MedicalDisclaimer
}
