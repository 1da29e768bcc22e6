package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/resilience"
	"github.com/talentsignal/signal-cli/internal/trace"
)

const stage1SystemPrompt = `You screen social media posts for hiring signals. A post is relevant only when the author is hiring for their OWN organization: announcing open roles on their team or company, asking for candidates or referrals for positions they control. Posts that are job-seeking, third-party recruiting round-ups, agency promotions, or commentary about the job market are not relevant. Respond with a valid JSON object: {"relevant": <true|false>, "roles": ["<role title>", ...]}. List each distinct role the author is hiring for.`

const stage1UserPrompt = `Author: %s
Title: %s

Post:
%s`

type stage1Verdict struct {
	Relevant bool     `json:"relevant"`
	Roles    []string `json:"roles"`
}

// runStage1 asks the oracle for a hiring-relevance verdict and role list.
// More than MaxRoles distinct roles flips the verdict negative: mass role
// listings are recruiter aggregation, not direct hiring.
func (p *Pipeline) runStage1(ctx context.Context, item *model.Item, res *model.ProcessingResult) error {
	if err := p.setStatus(ctx, item, model.StatusStage1Running); err != nil {
		return err
	}
	trace.StageStarted(ctx, "stage1", item.ID, item.URN)

	if strings.TrimSpace(item.Text) == "" {
		return resilience.NewValidationError("stage1: item %s has no post text", item.ID)
	}

	prompt := fmt.Sprintf(stage1UserPrompt, item.AuthorName, item.Title, item.Text)
	text, err := p.ask(ctx, res, p.cfg.FastModel, stage1SystemPrompt, prompt, p.cfg.MaxTokens)
	if err != nil {
		trace.StageFailed(ctx, "stage1", item.ID, item.RetryCount, err)
		return err
	}

	var verdict stage1Verdict
	if err := json.Unmarshal([]byte(cleanJSON(text)), &verdict); err != nil {
		trace.StageFailed(ctx, "stage1", item.ID, item.RetryCount, err)
		return resilience.NewParseError("stage1", err)
	}

	roles := normalizeRoles(verdict.Roles, len(verdict.Roles))
	if verdict.Relevant && len(roles) > p.cfg.MaxRoles {
		trace.Logger(ctx).Info("stage1 verdict flipped negative on role count",
			zap.String("item_id", item.ID),
			zap.Int("roles", len(roles)),
			zap.Int("max_roles", p.cfg.MaxRoles),
		)
		verdict.Relevant = false
	}
	if len(roles) > p.cfg.MaxRoles {
		roles = roles[:p.cfg.MaxRoles]
	}

	relevant := verdict.Relevant
	item.Stage1Relevant = &relevant
	item.Stage1Roles = roles
	res.StagesRun = append(res.StagesRun, "stage1")

	if !relevant {
		if err := p.setStatus(ctx, item, model.StatusStage1Rejected); err != nil {
			return err
		}
		trace.StageCompleted(ctx, "stage1", item.ID, string(item.Status))
		return nil
	}

	if err := p.store.UpdateItem(ctx, item); err != nil {
		return err
	}
	trace.StageCompleted(ctx, "stage1", item.ID, string(item.Status))
	return nil
}

// normalizeRoles trims, lowercases and deduplicates role strings, keeping at
// most limit entries in their original order.
func normalizeRoles(roles []string, limit int) []string {
	seen := make(map[string]struct{}, len(roles))
	var out []string
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
