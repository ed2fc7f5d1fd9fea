package indicator

import (
	"os"
	"strings"
)

type locale string

const localeEnglish locale = "en"

type messages struct {
	recording    string
	transcribing string
	generating   string
	speaking     string
	errorText    string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

// resolveLocale maps LANG to a supported message table. Only English ships today.
func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	default:
		return messages{
			recording:    "Listening…",
			transcribing: "Transcribing…",
			generating:   "Thinking…",
			speaking:     "Speaking…",
			errorText:    "Voice assistant error",
		}
	}
}
