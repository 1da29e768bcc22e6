package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/resilience"
	"github.com/talentsignal/signal-cli/internal/trace"
)

const stage2SystemPrompt = `You determine the language and likely territory of a hiring post. Examine the post text and the author's details. Respond with a valid JSON object: {"language": "<BCP 47 tag, e.g. en or en-US>", "location": "<ISO 3166-1 alpha-2 territory code, or empty string when genuinely undeterminable>", "reason": "<one short sentence>"}. Base the territory on explicit signals only (place names, spelling conventions, currency, phone formats); do not guess.`

const stage2UserPrompt = `Author: %s
Roles: %s

Post:
%s`

type stage2Verdict struct {
	Language string `json:"language"`
	Location string `json:"location"`
	Reason   string `json:"reason"`
}

// runStage2 applies the locale gate. The oracle reports language and
// territory; the accept decision is made locally against the registry. The
// language must be accepted, and a reported territory must be accepted too.
// An empty territory is not a rejection: the oracle only reports locations it
// has explicit signals for, so an accepted-language post with no location
// passes. Unparseable or unregistered values fail closed.
func (p *Pipeline) runStage2(ctx context.Context, item *model.Item, res *model.ProcessingResult) error {
	if err := p.setStatus(ctx, item, model.StatusStage2Running); err != nil {
		return err
	}
	trace.StageStarted(ctx, "stage2", item.ID, item.URN)

	prompt := fmt.Sprintf(stage2UserPrompt, item.AuthorName, joinRoles(item.Stage1Roles), item.Text)
	text, err := p.ask(ctx, res, p.cfg.FastModel, stage2SystemPrompt, prompt, p.cfg.MaxTokens)
	if err != nil {
		trace.StageFailed(ctx, "stage2", item.ID, item.RetryCount, err)
		return err
	}

	var verdict stage2Verdict
	if err := json.Unmarshal([]byte(cleanJSON(text)), &verdict); err != nil {
		trace.StageFailed(ctx, "stage2", item.ID, item.RetryCount, err)
		return resilience.NewParseError("stage2", err)
	}

	location := strings.TrimSpace(verdict.Location)
	accepted := p.locales.AcceptsLanguage(verdict.Language) &&
		(location == "" || p.locales.AcceptsTerritory(location))

	item.Stage2Accepted = &accepted
	item.Stage2Language = verdict.Language
	item.Stage2Location = verdict.Location
	item.Stage2Reason = verdict.Reason
	res.StagesRun = append(res.StagesRun, "stage2")

	if !accepted {
		if err := p.setStatus(ctx, item, model.StatusStage2Rejected); err != nil {
			return err
		}
		trace.StageCompleted(ctx, "stage2", item.ID, string(item.Status))
		return nil
	}

	if err := p.store.UpdateItem(ctx, item); err != nil {
		return err
	}
	trace.StageCompleted(ctx, "stage2", item.ID, string(item.Status))
	return nil
}

func joinRoles(roles []string) string {
	if len(roles) == 0 {
		return "(none listed)"
	}
	out := roles[0]
	for _, r := range roles[1:] {
		out += ", " + r
	}
	return out
}
