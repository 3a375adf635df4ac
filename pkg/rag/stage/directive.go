package stage

import "chatbot-engine-be/pkg/store"

var directives = map[store.Stage]string{
	store.StageGreeting: `Stage: greeting
- Greet the user warmly and briefly.
- Ask what brings them here today. Ask only one question.`,

	store.StageGathering: `Stage: gathering
- Collect the key facts about the user's situation.
- Ask one or two focused questions (onset, duration, severity, what they tried).
- Do not give a conclusion yet.`,

	store.StageFollowup: `Stage: followup
- Reflect back what you understood so far.
- Ask at most one clarifying question about anything still missing.`,

	store.StageConclusion: `Stage: conclusion
- Summarize what the user told you in two or three sentences.
- Give practical, general guidance grounded in the relevant knowledge.
- Say clearly when a professional should be consulted.
- Do not ask further questions unless the user asks for more.`,

	store.StageEmergency: `Stage: emergency
- The user may be describing a medical emergency.
- Tell them to contact local emergency services or go to the nearest emergency department now.
- Keep the reply short and calm. Do not ask follow-up questions and do not suggest home remedies.`,

	store.StageFarewell: `Stage: farewell
- Close the conversation politely in one or two sentences.
- Remind the user they can start again at any time.`,
}

// Directive returns the prompt instructions for a stage. Unknown stages get
// the greeting directive, matching the reset behaviour of the machine.
func Directive(s store.Stage) string {
	if d, ok := directives[s]; ok {
		return d
	}
	return directives[store.StageGreeting]
}
