package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// status mirrors the daemon's /status document.
type status struct {
	State        string `json:"state"`
	Muxed        bool   `json:"muxed"`
	LinkUp       bool   `json:"linkUp"`
	Error        string `json:"error"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Revision     string `json:"revision"`
	IMEI         string `json:"imei"`
	IMSI         string `json:"imsi"`
	RSSI         int    `json:"rssi"`
	Operator     int    `json:"operator"`
	LAC          int    `json:"lac"`
	CellID       int    `json:"cellId"`
	Address      string `json:"address"`
	Registration string `json:"registration"`
}

// rssiInvalid matches the daemon's marker for a missing signal reading.
const rssiInvalid = -1000

var (
	colorPrimary   = lipgloss.Color("#7D56F4")
	colorSecondary = lipgloss.Color("#6C6C6C")
	colorSuccess   = lipgloss.Color("#73D216")
	colorError     = lipgloss.Color("#FF5555")
	colorWarning   = lipgloss.Color("#F4BF75")
	colorMuted     = lipgloss.Color("#555555")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Width(14)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(1, 2)
)

func render(st status) string {
	var rows []string
	row := func(label, value string) {
		if value == "" {
			return
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
	}

	row("State", stateStyle(st).Render(st.State))
	if st.Error != "" {
		row("Error", errorStyle.Render(st.Error))
	}
	row("Registration", st.Registration)
	row("Signal", signalText(st.RSSI))
	if st.Operator != 0 {
		row("Operator", fmt.Sprint(st.Operator))
	}
	if st.CellID != 0 {
		row("Cell", fmt.Sprintf("%X / %X", st.LAC, st.CellID))
	}
	row("Address", st.Address)
	row("Modem", strings.TrimSpace(st.Manufacturer+" "+st.Model))
	row("Revision", st.Revision)
	row("IMEI", st.IMEI)
	row("IMSI", st.IMSI)
	if st.Muxed {
		row("Mux", "on")
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("mgsm"),
		strings.Join(rows, "\n"),
	))
}

func stateStyle(st status) lipgloss.Style {
	switch {
	case st.State == "error":
		return errorStyle
	case st.LinkUp:
		return successStyle
	}
	return warningStyle
}

func signalText(dbm int) string {
	if dbm == rssiInvalid || dbm == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d dBm", dbm)
}
