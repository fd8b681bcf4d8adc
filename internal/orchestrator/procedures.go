package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/pkg/models"
)

// ErrNotProcedure is returned by Advance for tasks that are not procedure parents.
var ErrNotProcedure = errors.New("task is not a procedure")

// tryProcedure starts a matching procedure: one parent task, one child per
// expanded step, and the first step run immediately. Later steps run on
// Advance.
func (o *Orchestrator) tryProcedure(ctx context.Context, text string) (*Outcome, bool, error) {
	if o.d.Procedures == nil {
		return nil, false, nil
	}
	m, ok := o.d.Procedures.Match(text)
	if !ok {
		return nil, false, nil
	}
	name := m.Procedure.Name
	log := o.d.Logger.With().Str("procedure", name).Logger()
	if len(m.Steps) == 0 {
		log.Warn().Msg("procedure matched but every step was guarded out")
		return nil, false, nil
	}

	parent, err := o.d.Tasks.Create(taskqueue.NewTask{
		Title: truncate(name+": "+text, maxTitleLen),
		Agent: procedureAgent,
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not create procedure task")
		return nil, false, nil
	}
	for _, step := range m.Steps {
		_, err := o.d.Tasks.Create(taskqueue.NewTask{
			Title:      truncate(step.Description, maxTitleLen),
			Agent:      step.Category,
			ParentID:   parent.ID,
			OrderIndex: step.Index,
		})
		if err != nil {
			log.Warn().Err(err).Int("step", step.Index).Msg("could not create step task")
			o.settle(parent.ID, models.TaskStatusCancelled, &models.TaskResult{Message: "step creation failed"})
			return nil, false, nil
		}
	}
	o.settle(parent.ID, models.TaskStatusInProgress, nil)

	o.emit(models.EventProcedureStarted, parent.ID, models.RiskLow, name, map[string]any{
		"steps":  len(m.Steps),
		"vars":   m.Vars,
		"source": m.Procedure.Source,
	})

	out, err := o.runNextStep(ctx, parent.ID, name)
	return out, true, err
}

// Advance runs the next pending step of a procedure started earlier and
// emits its own routing_decision.
func (o *Orchestrator) Advance(ctx context.Context, parentID string) (*Outcome, error) {
	parent, err := o.d.Tasks.Get(parentID)
	if err != nil {
		return nil, err
	}
	if parent.Agent != procedureAgent {
		return nil, fmt.Errorf("task %s: %w", parentID, ErrNotProcedure)
	}
	name, _, _ := strings.Cut(parent.Title, ":")

	start := time.Now()
	out, err := o.runNextStep(ctx, parentID, name)
	o.recordDecision(Request{Source: "advance"}, parent.Title, out, err, time.Since(start))
	return out, err
}

func (o *Orchestrator) runNextStep(ctx context.Context, parentID, name string) (*Outcome, error) {
	out := &Outcome{Path: PathProcedure, Procedure: name, TaskID: parentID}
	children := o.d.Tasks.Children(parentID)

	step, ok := o.d.Tasks.NextChild(parentID)
	if !ok {
		out.Action = o.finishProcedure(parentID, name, children)
		return out, nil
	}

	o.settle(step.ID, models.TaskStatusInProgress, nil)
	action, err := o.executeStep(ctx, step)
	if err != nil {
		o.settle(step.ID, models.TaskStatusFailed, &models.TaskResult{Message: truncate(err.Error(), maxResultLen)})
		var exhausted *provider.ExhaustedError
		if errors.As(err, &exhausted) || ctx.Err() != nil {
			return out, err
		}
		o.d.Logger.Warn().Err(err).Str("task_id", step.ID).Msg("procedure step failed")
		action = &models.Action{Success: false, Message: err.Error()}
	} else {
		to := models.TaskStatusDone
		if !action.Success {
			to = models.TaskStatusFailed
		}
		o.settle(step.ID, to, &models.TaskResult{
			Success: action.Success,
			Message: summarize(action.Message),
			Proof:   action.Proof,
		})
	}

	total := len(children)
	wrapped := &models.Action{
		Type:    models.ActionProcedure,
		Success: action.Success,
		Message: fmt.Sprintf("%s step %d/%d: %s\n\n%s", name, step.OrderIndex+1, total, step.Title, action.Message),
		Proof:   action.Proof,
		Risk:    ClassifyRisk(action),
		Source:  "procedure:" + name,
		Payload: map[string]string{
			"procedure":   name,
			"parent_task": parentID,
			"step_task":   step.ID,
		},
	}
	if !action.Success {
		wrapped.NextStep = "retry step " + step.ID
	} else if next, ok := o.d.Tasks.NextChild(parentID); ok {
		wrapped.NextStep = fmt.Sprintf("step %d/%d: %s", next.OrderIndex+1, total, next.Title)
	} else {
		o.finishProcedure(parentID, name, o.d.Tasks.Children(parentID))
	}
	out.Action = wrapped
	return out, nil
}

// executeStep runs a step through the best handler of its category, or
// through generation when no handler serves that category.
func (o *Orchestrator) executeStep(ctx context.Context, step *models.Task) (*models.Action, error) {
	if step.Agent != "" && o.d.Registry != nil {
		if m, ok := o.d.Registry.BestInCategory(step.Agent, step.Title); ok {
			action, err := o.d.Registry.Execute(ctx, m.Handler, step.Title)
			if err == nil {
				return action, nil
			}
			o.emit(models.EventCapabilityError, step.ID, models.RiskMedium, err.Error(), map[string]any{
				"handler": m.Handler.Name(),
			})
		}
	}
	resp, err := o.send(ctx, Request{}, step.Title)
	if err != nil {
		return nil, err
	}
	return generatedAction(resp), nil
}

// finishProcedure closes the parent once no step is pending.
func (o *Orchestrator) finishProcedure(parentID, name string, children []*models.Task) *models.Action {
	var failed []string
	for _, c := range children {
		if c.Status == models.TaskStatusFailed {
			failed = append(failed, c.ID)
		}
	}

	if len(failed) > 0 {
		return &models.Action{
			Type:     models.ActionProcedure,
			Message:  fmt.Sprintf("%s has %d failed step(s)", name, len(failed)),
			NextStep: "retry step " + failed[0],
			Risk:     models.RiskLow,
			Source:   "procedure:" + name,
			Payload:  map[string]string{"procedure": name, "parent_task": parentID},
		}
	}

	if parent, err := o.d.Tasks.Get(parentID); err == nil && parent.Status == models.TaskStatusInProgress {
		o.settle(parentID, models.TaskStatusDone, &models.TaskResult{
			Success: true,
			Message: fmt.Sprintf("%d step(s) completed", len(children)),
		})
	}
	return &models.Action{
		Type:    models.ActionProcedure,
		Success: true,
		Message: name + " is complete",
		Risk:    models.RiskLow,
		Source:  "procedure:" + name,
		Payload: map[string]string{"procedure": name, "parent_task": parentID},
	}
}
