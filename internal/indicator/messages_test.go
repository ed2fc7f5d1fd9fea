package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocaleDefaultsToEnglish(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("fr_FR.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale(""))
}

func TestIndicatorMessagesEnglish(t *testing.T) {
	msg := indicatorMessages(localeEnglish)
	require.Equal(t, "Listening…", msg.recording)
	require.Equal(t, "Transcribing…", msg.transcribing)
	require.Equal(t, "Thinking…", msg.generating)
	require.Equal(t, "Speaking…", msg.speaking)
	require.Equal(t, "Voice assistant error", msg.errorText)
}
