package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ConfigureColor selects the lipgloss color profile. Color is disabled when
// noColor is set, NO_COLOR is present, or TERM is dumb.
func ConfigureColor(noColor bool) termenv.Profile {
	if noColor || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return termenv.Ascii
	}
	profile := termenv.EnvColorProfile()
	lipgloss.SetColorProfile(profile)
	return profile
}
