package safety

import "regexp"

const maskedValue = "***MASKED***"

type maskRule struct {
	re   *regexp.Regexp
	repl string
}

var secretRules = []maskRule{
	{regexp.MustCompile(`(?i)(api[_-]?key["\s]*[:=]["\s]*)([a-zA-Z0-9_-]{20,})`), "${1}" + maskedValue},
	{regexp.MustCompile(`(?i)(token["\s]*[:=]["\s]*)([a-zA-Z0-9_.-]{20,})`), "${1}" + maskedValue},
	{regexp.MustCompile(`(?i)(password["\s]*[:=]["\s]*)([^\s"]{8,})`), "${1}" + maskedValue},
	{regexp.MustCompile(`(?i)(secret["\s]*[:=]["\s]*)([a-zA-Z0-9_-]{16,})`), "${1}" + maskedValue},
	{regexp.MustCompile(`(?i)(Bearer\s+)([a-zA-Z0-9_.-]{20,})`), "${1}" + maskedValue},
	{regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{20,}`), maskedValue},
	{regexp.MustCompile(`(?i)xai-[a-zA-Z0-9]{20,}`), maskedValue},
	{regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`), maskedValue},
	{regexp.MustCompile(`AIza[0-9A-Za-z_-]{30,}`), maskedValue},
}

// MaskSecrets replaces credential-looking substrings so text is safe to log
func MaskSecrets(text string) string {
	if text == "" {
		return text
	}
	for _, r := range secretRules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}

// MaskDetails returns a copy of a log details map with string values masked
func MaskDetails(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		switch val := v.(type) {
		case string:
			out[k] = MaskSecrets(val)
		case error:
			out[k] = MaskSecrets(val.Error())
		default:
			out[k] = v
		}
	}
	return out
}
