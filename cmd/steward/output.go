package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ShayCichocki/steward/internal/orchestrator"
	"github.com/ShayCichocki/steward/pkg/models"
)

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

func riskColor(r models.RiskLevel) *color.Color {
	switch r {
	case models.RiskHigh:
		return color.New(color.FgRed, color.Bold)
	case models.RiskMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiBlack)
	}
}

func statusColor(s models.TaskStatus) *color.Color {
	switch s {
	case models.TaskStatusInProgress:
		return color.New(color.FgCyan)
	case models.TaskStatusWaitingConfirm:
		return color.New(color.FgYellow)
	case models.TaskStatusDone:
		return color.New(color.FgGreen)
	case models.TaskStatusFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}

// writeOutcome renders a routed request for the terminal.
func writeOutcome(w io.Writer, out *orchestrator.Outcome) {
	a := out.Action
	if a == nil {
		return
	}

	symbol := color.GreenString("✓")
	if !a.Success {
		symbol = color.RedString("✗")
	}
	fmt.Fprintf(w, "%s %s\n", symbol, a.Message)

	var meta []string
	meta = append(meta, "via "+string(out.Path))
	switch {
	case out.Detector != "":
		meta = append(meta, "detector "+out.Detector)
	case out.Handler != "":
		meta = append(meta, fmt.Sprintf("handler %s (%.2f)", out.Handler, out.Score))
	case out.Procedure != "":
		meta = append(meta, "procedure "+out.Procedure)
	}
	if out.TaskID != "" {
		meta = append(meta, "task "+out.TaskID)
	}
	meta = append(meta, "risk "+riskColor(a.Risk).Sprint(a.Risk))
	fmt.Fprintf(w, "  %s\n", color.HiBlackString(strings.Join(meta, " · ")))

	if a.Proof != "" {
		fmt.Fprintf(w, "  proof: %s\n", a.Proof)
	}
	if a.NextStep != "" {
		fmt.Fprintf(w, "  next: %s\n", color.CyanString(a.NextStep))
	}
	if len(a.Payload) > 0 && a.Type != models.ActionGenerate {
		keys := make([]string, 0, len(a.Payload))
		for k := range a.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", color.HiBlackString(k), a.Payload[k])
		}
	}
}

// shortID keeps output columns aligned for long identifiers.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
