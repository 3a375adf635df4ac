package stage

import (
	"strings"
	"unicode"
)

// Phrase sets used by the transition rules. Multi-word phrases match on word
// boundaries, so "hi" never matches inside "this".
var (
	emergencyMarkers = newPhraseSet(
		"chest pain", "crushing chest", "can't breathe", "cannot breathe", "cant breathe",
		"difficulty breathing", "trouble breathing", "not breathing", "unconscious",
		"passed out", "fainted", "severe bleeding", "bleeding heavily", "won't stop bleeding",
		"heart attack", "stroke", "face drooping", "slurred speech", "seizure", "overdose",
		"suicide", "suicidal", "kill myself", "end my life", "coughing blood",
		"vomiting blood", "anaphylaxis", "throat closing",
	)

	greetingPhrases = newPhraseSet(
		"hi", "hello", "hey", "hiya", "howdy", "greetings", "hola", "yo",
		"good morning", "good afternoon", "good evening",
		"start over", "restart", "new conversation",
	)

	treatmentPhrases = newPhraseSet(
		"treatment", "treatments", "how to treat", "how do i treat", "treat it",
		"remedy", "remedies", "cure", "what should i do", "what can i do",
		"what should i take", "what can i take", "medicine for", "medication for",
		"advice", "advise me", "recommend", "recommendation", "solution",
	)

	confusionTokens = newPhraseSet(
		"what", "huh", "eh", "sorry", "pardon", "come again", "confused",
		"i don't understand", "i dont understand", "what do you mean",
	)

	terseReplies = newPhraseSet(
		"ok", "okay", "k", "no", "nope", "nah", "idk", "i don't know", "i dont know",
		"dunno", "whatever", "fine", "nothing", "not sure", "maybe", "meh",
	)

	earlyExitPhrases = newPhraseSet(
		"just tell me", "just give me", "stop asking", "enough questions",
		"too many questions", "get to the point", "give me advice", "need advice",
		"just kidding", "jk", "not serious", "i'm joking", "im joking", "lol", "lmao",
		"this is a test",
	)

	closingPhrases = newPhraseSet(
		"bye", "goodbye", "good bye", "see you", "see ya", "thank you", "thanks",
		"thx", "ty", "that's all", "thats all", "that is all", "take care",
		"have a good day", "cheers",
	)
)

type phraseSet struct {
	phrases []string
	exact   map[string]struct{}
}

func newPhraseSet(phrases ...string) phraseSet {
	ps := phraseSet{exact: make(map[string]struct{}, len(phrases))}
	for _, p := range phrases {
		n := strings.Join(words(p), " ")
		ps.phrases = append(ps.phrases, n)
		ps.exact[n] = struct{}{}
	}
	return ps
}

// Matches reports whether the utterance equals one of the phrases
func (ps phraseSet) Matches(u utterance) bool {
	_, ok := ps.exact[u.joined]
	return ok
}

// Contains reports whether any phrase occurs in the utterance on word boundaries
func (ps phraseSet) Contains(u utterance) bool {
	if u.joined == "" {
		return false
	}
	for _, p := range ps.phrases {
		if strings.Contains(u.padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// utterance is the normalized form every rule matches against:
// lower-cased, punctuation stripped, whitespace collapsed.
type utterance struct {
	words  []string
	joined string
	padded string
}

func normalize(raw string) utterance {
	w := words(raw)
	joined := strings.Join(w, " ")
	return utterance{words: w, joined: joined, padded: " " + joined + " "}
}

func words(s string) []string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "'")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "'"); f != "" {
			out = append(out, f)
		}
	}
	return out
}
