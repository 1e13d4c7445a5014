package tui

const (
	TextTitle        = "🌱 GrantBot Review"
	TextFooter       = "↑/↓ move | 'a' add | 'r' reviewed | 'x' reject | 'd' run discovery | 'q' quit"
	TextEmptyQueue   = "No new candidates. Press 'd' to run discovery."
	TextNotConnected = "❌ Not connected to grantbot API"

	maxLogLines = 8
	maxTitleLen = 70
)
