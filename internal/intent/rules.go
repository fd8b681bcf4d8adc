package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ShayCichocki/steward/internal/protect"
	"github.com/ShayCichocki/steward/pkg/models"
)

// Names of the detectors that answer a pending confirmation.
const (
	DetectorConfirmPending = "confirm_pending"
	DetectorCancelPending  = "cancel_pending"
)

// RuleConfig wires the built-in detectors to their collaborators.
type RuleConfig struct {
	Ops     Operations
	Session *Session
	// DestructiveAllowed skips the confirmation round trip for deletions.
	DestructiveAllowed bool
	// Guard, when set, forces confirmation for protected paths even when
	// DestructiveAllowed is true.
	Guard *protect.Guard
	// Timeout bounds each operation. Zero means 10s.
	Timeout time.Duration
}

// DefaultDetectors returns the built-in detectors in precedence order.
// Confirmation handling comes first so a pending question always sees the reply.
func DefaultDetectors(cfg RuleConfig) []Detector {
	if cfg.Session == nil {
		cfg.Session = NewSession()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	r := &rules{cfg: cfg}
	return []Detector{
		{Name: DetectorConfirmPending, Detect: r.confirmPending},
		{Name: DetectorCancelPending, Detect: r.cancelPending},
		{Name: "delete_path", Detect: r.deletePath},
		{Name: "create_folder", Detect: r.createFolder},
		{Name: "open_app", Detect: r.openApp},
		{Name: "research_delegate", Detect: r.researchDelegate},
		{Name: "system_info", Detect: r.systemInfo},
	}
}

var (
	confirmPattern  = regexp.MustCompile(`(?i)^(yes|y|yeah|yep|confirm|do it|go ahead|ok|okay)[.!]*$`)
	cancelPattern   = regexp.MustCompile(`(?i)^(no|n|nope|cancel|stop|never ?mind|abort)[.!]*$`)
	deletePattern   = regexp.MustCompile(`(?i)^(?:please\s+)?(?:delete|remove|trash)\s+(?:the\s+)?(?:folder|file|directory|dir)\s+(?P<path>\S.*)$`)
	createPattern   = regexp.MustCompile(`(?i)^(?:please\s+)?(?:create|make)\s+(?:a\s+)?(?:new\s+)?(?:folder|directory|dir)\s+(?:called\s+|named\s+)?(?P<path>\S.*)$`)
	openPattern     = regexp.MustCompile(`(?i)^(?:please\s+)?(?:open|launch)\s+(?:the\s+)?(?P<app>[\w.+-]+(?:\s[\w.+-]+)?)(?:\s+app)?$`)
	researchPattern = regexp.MustCompile(`(?i)^(?:please\s+)?(?:research|search\s+for|look\s+up|find\s+out\s+about)\s+(?P<query>\S.*)$`)
	sysInfoPattern  = regexp.MustCompile(`(?i)\b(system info(?:rmation)?|what os|which os|machine info|cpu count|hostname)\b`)
)

type rules struct {
	cfg RuleConfig
}

func (r *rules) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.cfg.Timeout)
}

func (r *rules) confirmPending(text string) (*models.Action, error) {
	if !confirmPattern.MatchString(normalize(text)) || !r.cfg.Session.HasPending() {
		return nil, nil
	}
	p := r.cfg.Session.Take()
	if p == nil {
		return nil, nil
	}
	if p.Run == nil {
		action := p.Action
		return &action, nil
	}
	return p.Run()
}

func (r *rules) cancelPending(text string) (*models.Action, error) {
	if !cancelPattern.MatchString(normalize(text)) || !r.cfg.Session.HasPending() {
		return nil, nil
	}
	p := r.cfg.Session.Take()
	if p == nil {
		return nil, nil
	}
	return &models.Action{
		Type:    models.ActionCancel,
		Success: true,
		Message: "Cancelled: " + p.Question,
		Risk:    models.RiskLow,
	}, nil
}

func (r *rules) deletePath(text string) (*models.Action, error) {
	m := namedGroups(deletePattern, normalize(text))
	if m == nil {
		return nil, nil
	}
	path := strings.Trim(m["path"], `"'`)
	run := func() (*models.Action, error) {
		ctx, cancel := r.ctx()
		defer cancel()
		action := &models.Action{
			Type:    models.ActionDeletePath,
			Risk:    models.RiskHigh,
			Payload: r.pathPayload(path),
		}
		if err := r.cfg.Ops.DeletePath(ctx, path); err != nil {
			action.Message = fmt.Sprintf("Could not delete %s: %v", path, err)
			return action, nil
		}
		action.Success = true
		action.Message = "Deleted " + path
		return action, nil
	}

	payload := r.pathPayload(path)
	protected, reason := r.protected(payload)
	if r.cfg.DestructiveAllowed && !protected {
		return run()
	}

	question := fmt.Sprintf("Delete %s? This cannot be undone. Reply yes to confirm or no to cancel.", path)
	if protected {
		payload["protected"] = reason
		question = fmt.Sprintf("%s is protected (%s). Delete it anyway? Reply yes to confirm or no to cancel.", path, reason)
	}
	r.cfg.Session.SetPending(&Pending{
		Question:  question,
		Action:    models.Action{Type: models.ActionDeletePath, Payload: r.pathPayload(path)},
		Run:       run,
		CreatedAt: time.Now(),
	})
	return &models.Action{
		Type:     models.ActionClarify,
		Success:  true,
		Message:  question,
		NextStep: "confirm",
		Risk:     models.RiskHigh,
		Payload:  payload,
	}, nil
}

// protected checks the resolved path when known, else the path as given.
func (r *rules) protected(payload map[string]string) (bool, string) {
	if r.cfg.Guard == nil {
		return false, ""
	}
	target := payload["resolved"]
	if target == "" {
		target = payload["path"]
	}
	return r.cfg.Guard.Check(target)
}

func (r *rules) createFolder(text string) (*models.Action, error) {
	m := namedGroups(createPattern, normalize(text))
	if m == nil {
		return nil, nil
	}
	path := strings.Trim(m["path"], `"'`)

	ctx, cancel := r.ctx()
	defer cancel()
	action := &models.Action{
		Type:    models.ActionCreateFolder,
		Risk:    models.RiskMedium,
		Payload: r.pathPayload(path),
	}
	if err := r.cfg.Ops.CreateFolder(ctx, path); err != nil {
		action.Message = fmt.Sprintf("Could not create %s: %v", path, err)
		return action, nil
	}
	action.Success = true
	action.Message = "Created folder " + path
	return action, nil
}

func (r *rules) openApp(text string) (*models.Action, error) {
	m := namedGroups(openPattern, normalize(text))
	if m == nil {
		return nil, nil
	}
	app := m["app"]

	ctx, cancel := r.ctx()
	defer cancel()
	action := &models.Action{
		Type:    models.ActionOpenApp,
		Risk:    models.RiskLow,
		Payload: map[string]string{"app": app},
	}
	if err := r.cfg.Ops.OpenApp(ctx, app); err != nil {
		action.Message = fmt.Sprintf("Could not open %s: %v", app, err)
		return action, nil
	}
	action.Success = true
	action.Message = "Opened " + app
	return action, nil
}

func (r *rules) researchDelegate(text string) (*models.Action, error) {
	m := namedGroups(researchPattern, normalize(text))
	if m == nil {
		return nil, nil
	}
	return &models.Action{
		Type:    models.ActionDelegate,
		Success: true,
		Message: "Researching " + m["query"],
		Risk:    models.RiskLow,
		Payload: map[string]string{
			"query":   m["query"],
			"request": "Research the following and summarise the findings: " + m["query"],
		},
	}, nil
}

func (r *rules) systemInfo(text string) (*models.Action, error) {
	if !sysInfoPattern.MatchString(text) {
		return nil, nil
	}
	ctx, cancel := r.ctx()
	defer cancel()
	info, err := r.cfg.Ops.SystemInfo(ctx)
	if err != nil {
		return &models.Action{
			Type:    models.ActionSystemInfo,
			Message: "Could not read system info: " + err.Error(),
			Risk:    models.RiskLow,
		}, nil
	}
	return &models.Action{
		Type:    models.ActionSystemInfo,
		Success: true,
		Message: info,
		Risk:    models.RiskLow,
	}, nil
}

// pathPayload records the path as given and, when the collaborator can tell
// us, where it resolves on disk.
func (r *rules) pathPayload(path string) map[string]string {
	payload := map[string]string{"path": path}
	if res, ok := r.cfg.Ops.(interface{ Resolve(string) string }); ok {
		payload["resolved"] = res.Resolve(path)
	}
	return payload
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// namedGroups returns the named capture groups of the first match, or nil.
func namedGroups(re *regexp.Regexp, text string) map[string]string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	out := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			out[name] = strings.TrimSpace(match[i])
		}
	}
	return out
}
