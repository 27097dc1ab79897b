// Package alertsink delivers alerts to their consumers: the console banner
// and the durable WAL feed behind the dashboard stream.
package alertsink

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"bybit-volume-scanner/internal/domain"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("203")).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#4d4d4d", Dark: "#9c9c9c"}).
			Width(18)
)

// Console prints volume spike alerts as a styled terminal banner.
type Console struct {
	out io.Writer
}

// NewConsole creates a console sink writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// Notify renders the alert banner.
func (c *Console) Notify(alert domain.Alert) {
	rows := []string{
		titleStyle.Render("VOLUME SPIKE ALERT"),
		row("Symbol", alert.Symbol),
		row("Current Volume", fmt.Sprintf("%.2f", alert.CurrentVolume)),
		row("Average Volume", fmt.Sprintf("%.2f", alert.AvgVolume)),
		row("Volume Increase", fmt.Sprintf("%.2f%%", alert.VolumeChangePct)),
		row("Current Price", alert.LastPrice),
		row("Price Change 24h", alert.PriceChange24h),
		row("Time", alert.Timestamp.Format("2006-01-02 15:04:05")),
	}

	banner := bannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	fmt.Fprintln(c.out, banner)
}

func row(label, value string) string {
	return labelStyle.Render(label) + " " + value
}
