package orchestrator

import (
	"errors"
	"io/fs"
	"os"

	"github.com/ShayCichocki/steward/pkg/models"
)

// baseRisk is the minimum risk of each action type.
var baseRisk = map[models.ActionType]models.RiskLevel{
	models.ActionDeletePath:   models.RiskHigh,
	models.ActionCreateFolder: models.RiskMedium,
	models.ActionSchedule:     models.RiskMedium,
	models.ActionOpenApp:      models.RiskLow,
	models.ActionSystemInfo:   models.RiskLow,
	models.ActionClarify:      models.RiskLow,
	models.ActionCancel:       models.RiskLow,
}

// ClassifyRisk returns the higher of the action's own risk and the minimum
// risk for its type.
func ClassifyRisk(a *models.Action) models.RiskLevel {
	risk := models.RiskLow
	if base, ok := baseRisk[a.Type]; ok {
		risk = base
	}
	if a.Risk.Valid() && a.Risk.Rank() > risk.Rank() {
		risk = a.Risk
	}
	return risk
}

// attachProof fills in evidence that a successful filesystem action took
// effect. Existing proof is kept. It reports whether proof was attached.
func attachProof(a *models.Action) bool {
	if !a.Success || a.Proof != "" {
		return false
	}
	path := a.Payload["resolved"]
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	switch a.Type {
	case models.ActionCreateFolder:
		if err == nil && info.IsDir() {
			a.Proof = "verified: " + path + " exists"
			return true
		}
	case models.ActionDeletePath:
		if errors.Is(err, fs.ErrNotExist) {
			a.Proof = "verified: " + path + " no longer exists"
			return true
		}
	}
	return false
}
