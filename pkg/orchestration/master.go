package orchestration

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alantheprice/director/pkg/contract"
	"github.com/alantheprice/director/pkg/jsonextract"
	"github.com/alantheprice/director/pkg/plan"
	"github.com/alantheprice/director/pkg/planner"
)

const masterSystemPrompt = "You are a game engine automation expert. Output ONLY JSON."

// MasterGoal is the goal of the reusable setup plan.
func MasterGoal(projectName, buildMethod string, files []string) string {
	return fmt.Sprintf("Create a project called %s. 1) Find the editor. 2) Create the project. "+
		"3) Create Assets/Editor, Builds and Scenes. 4) Write %s. 5) Execute %s.",
		projectName, strings.Join(files, ", "), buildMethod)
}

// MasterPlan returns the saved setup plan, generating and saving it first
// when it does not exist. A generated plan must pass the contract and
// mention every required file; failing candidates are retried with the
// reason fed back to the model.
func (d *Director) MasterPlan(ctx context.Context, force bool) (plan.Plan, bool, error) {
	path := d.cfg.Paths.MasterPlan
	if !force {
		if _, err := os.Stat(path); err == nil {
			p, err := plan.Load(path)
			return p, false, err
		}
	}

	pcfg := planner.ConfigFrom(d.cfg)
	required := d.cfg.Planner.MasterPlanFiles
	goal := MasterGoal(d.cfg.Project.Name, d.cfg.Toolchain.BuildMethod, required)
	retries := d.cfg.Planner.MasterPlanRetries
	if retries < 1 {
		retries = 1
	}

	var rs planner.ReplanState
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return plan.Plan{}, false, err
		}
		rs.Attempt = attempt
		msgs := planner.BuildMessages(masterSystemPrompt, d.env(), goal, pcfg.Contract, rs, pcfg.PreviousOutputLimit)
		raw, err := d.client.Chat(ctx, msgs, pcfg.Options)
		if err != nil {
			rs.LastError, rs.LastRaw = fmt.Sprintf("model call failed: %v", err), ""
			d.logger.Logf("master plan attempt %d: %s", attempt, rs.LastError)
			continue
		}

		p, reason := checkMasterPlan(raw, pcfg.Contract, required)
		if reason != "" {
			rs.LastError, rs.LastRaw = reason, raw
			d.logger.Logf("master plan attempt %d: %s", attempt, reason)
			continue
		}
		if err := plan.Save(path, p); err != nil {
			return plan.Plan{}, false, err
		}
		d.logger.LogProcessStep(fmt.Sprintf("Master plan saved to %s", path))
		return p, true, nil
	}
	return plan.Plan{}, false, fmt.Errorf("no valid master plan after %d attempts: %s", retries, rs.LastError)
}

func checkMasterPlan(raw string, c contract.Contract, required []string) (plan.Plan, string) {
	doc, ok := jsonextract.FirstObject(raw)
	if !ok {
		return plan.Plan{}, "model output contained no JSON object"
	}
	if ok, msg := contract.ValidateDocument(doc, c); !ok {
		return plan.Plan{}, msg
	}
	p, err := plan.Decode(doc)
	if err != nil {
		return plan.Plan{}, err.Error()
	}
	if missing := p.MissingMentions(required); len(missing) > 0 {
		return plan.Plan{}, "plan does not write required files: " + strings.Join(missing, ", ")
	}
	return p, ""
}
