// Package tui provides the terminal watch view used by `steward watch`.
//
// The view polls a snapshot function on a fixed interval and renders four
// tabs: the task board, scheduled jobs, recent events and provider health.
// Pressing / focuses an input line; Enter sends the text to the ask
// function and shows the reply in the footer.
//
// Usage:
//
//	app := tui.NewApp(snapshot, ask, 2*time.Second)
//	_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
package tui
