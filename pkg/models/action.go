package models

// ActionType identifies what kind of action a request resolved to.
type ActionType string

const (
	ActionOpenApp      ActionType = "open_app"
	ActionCreateFolder ActionType = "create_folder"
	ActionDeletePath   ActionType = "delete_path"
	ActionSystemInfo   ActionType = "system_info"
	ActionClarify      ActionType = "clarify"
	ActionCancel       ActionType = "cancel"
	// ActionDelegate marks a request that a detector recognized but wants
	// handled by a later routing stage.
	ActionDelegate   ActionType = "delegate"
	ActionCapability ActionType = "capability"
	ActionProcedure  ActionType = "procedure"
	ActionGenerate   ActionType = "generate"
	ActionSchedule   ActionType = "schedule"
)

// Valid returns true if the action type is a known value.
func (a ActionType) Valid() bool {
	switch a {
	case ActionOpenApp, ActionCreateFolder, ActionDeletePath, ActionSystemInfo,
		ActionClarify, ActionCancel, ActionDelegate, ActionCapability,
		ActionProcedure, ActionGenerate, ActionSchedule:
		return true
	default:
		return false
	}
}

// RiskLevel grades how much damage an action could do.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid returns true if the risk level is a known value.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// Rank orders risk levels so they can be compared. Unknown levels rank as high.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// Action is the structured result of handling a request.
type Action struct {
	Type     ActionType        `json:"type"`
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Proof    string            `json:"proof,omitempty"`
	NextStep string            `json:"next_step,omitempty"`
	Risk     RiskLevel         `json:"risk,omitempty"`
	Payload  map[string]string `json:"payload,omitempty"`
	// Source names the detector, handler, procedure or provider that produced the action.
	Source string `json:"source,omitempty"`
}

// IsDelegate reports whether the action hands the request to a later stage.
func (a *Action) IsDelegate() bool {
	return a != nil && a.Type == ActionDelegate
}
