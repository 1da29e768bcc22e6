package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/registry"
	"github.com/talentsignal/signal-cli/internal/resilience"
	"github.com/talentsignal/signal-cli/internal/trace"
)

const stage3SystemPrompt = `You assign a hiring post to exactly one category and normalize its role titles. Categories: %s. Respond with a valid JSON object: {"category": "<one category>", "roles": ["<title>", "<title>"]}. Role titles must be lower-case and singular (e.g. "backend engineer", not "Backend Engineers"), at most two, most senior first.`

const stage3UserPrompt = `Roles extracted earlier: %s

Post:
%s`

// maxStage3Roles caps the normalized role titles carried onto the lead.
const maxStage3Roles = 2

type stage3Verdict struct {
	Category string   `json:"category"`
	Roles    []string `json:"roles"`
}

// runStage3 asks the deep model for the category and normalized role titles.
// A malformed response is terminal; valid JSON naming a category outside the
// registry coerces to "other" with a warning.
func (p *Pipeline) runStage3(ctx context.Context, item *model.Item, res *model.ProcessingResult) error {
	if err := p.setStatus(ctx, item, model.StatusStage3Running); err != nil {
		return err
	}
	trace.StageStarted(ctx, "stage3", item.ID, item.URN)

	system := fmt.Sprintf(stage3SystemPrompt, strings.Join(p.cats.Names(), ", "))
	prompt := fmt.Sprintf(stage3UserPrompt, joinRoles(item.Stage1Roles), item.Text)
	text, err := p.ask(ctx, res, p.cfg.DeepModel, system, prompt, p.cfg.MaxTokens)
	if err != nil {
		trace.StageFailed(ctx, "stage3", item.ID, item.RetryCount, err)
		return err
	}

	var verdict stage3Verdict
	if err := json.Unmarshal([]byte(cleanJSON(text)), &verdict); err != nil {
		trace.StageFailed(ctx, "stage3", item.ID, item.RetryCount, err)
		return resilience.NewParseError("stage3", err)
	}
	if strings.TrimSpace(verdict.Category) == "" {
		err := resilience.NewParseError("stage3", eris.New(`response missing "category"`))
		trace.StageFailed(ctx, "stage3", item.ID, item.RetryCount, err)
		return err
	}

	category := p.cats.Normalize(verdict.Category)
	if category == registry.CategoryOther && !p.cats.Contains(verdict.Category) {
		trace.Logger(ctx).Warn("stage3 category outside registry, coerced to other",
			zap.String("item_id", item.ID),
			zap.String("category", verdict.Category),
		)
	}

	item.Stage3Category = category
	item.Stage3Roles = normalizeRoles(verdict.Roles, maxStage3Roles)
	res.StagesRun = append(res.StagesRun, "stage3")

	if err := p.store.UpdateItem(ctx, item); err != nil {
		return err
	}
	trace.StageCompleted(ctx, "stage3", item.ID, string(item.Status))
	return nil
}
