package banner

import (
	"songbench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

const ascii = `
                        __                    __  
   _________  ____  ___/ /_  ___  ____  _____/ /_ 
  / ___/ __ \/ __ \/ __  / __ \/ _ \/ __ \/ ___/ __ \
 (__  ) /_/ / / / / /_/ / /_/ /  __/ / / / /__/ / / /
/____/\____/_/ /_/\__, /_.___/\___/_/ /_/\___/_/ /_/ 
                 /____/                              `

func GetString() string {
	style := lipgloss.DefaultRenderer().NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	return "\n" + style.Render(ascii) + "\n"
}
