package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/trace"
)

const messageSystemPrompt = `You draft short outreach messages to hiring managers on behalf of a talent agency. Constraints: at most %d characters, plain text, no emojis, no links, no subject line. Reference the specific role they are hiring for and sound like a person, not a campaign. Respond with the message text only.`

const messageUserPrompt = `Recipient: %s
Hiring for: %s
Their post:
%s`

// messageAttempts is how many generations are tried before the deterministic
// fallback template is substituted.
const messageAttempts = 2

// runMessaging drafts the outreach message. Client and vendor matches are
// never messaged. The ceiling is a hard rune count; drafts that exceed it are
// regenerated, and when all attempts miss, the fallback template is used and
// flagged.
func (p *Pipeline) runMessaging(ctx context.Context, item *model.Item, res *model.ProcessingResult) error {
	if item.ClientMatch || item.VendorMatch {
		trace.StageSkipped(ctx, "messaging", item.ID, "employer matched directory")
		return nil
	}
	if item.Message != "" || item.MessageFallback {
		trace.StageSkipped(ctx, "messaging", item.ID, "message already drafted")
		return nil
	}

	if err := p.setStatus(ctx, item, model.StatusMessagingRunning); err != nil {
		return err
	}
	trace.StageStarted(ctx, "messaging", item.ID, item.URN)

	system := fmt.Sprintf(messageSystemPrompt, p.cfg.MessageMaxRunes)
	prompt := fmt.Sprintf(messageUserPrompt, item.AuthorName, joinRoles(item.Stage3Roles), item.Text)

	var lastErr string
	for attempt := 1; attempt <= messageAttempts; attempt++ {
		text, err := p.ask(ctx, res, p.cfg.DeepModel, system, prompt, p.cfg.MaxTokens)
		if err != nil {
			lastErr = err.Error()
			trace.Logger(ctx).Warn("message generation failed",
				zap.String("item_id", item.ID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		draft := strings.TrimSpace(text)
		if draft == "" {
			lastErr = "empty draft"
			continue
		}
		if utf8.RuneCountInString(draft) > p.cfg.MessageMaxRunes {
			lastErr = fmt.Sprintf("draft over ceiling: %d runes", utf8.RuneCountInString(draft))
			prompt = fmt.Sprintf("%s\n\nYour previous draft was too long. It must be under %d characters.", prompt, p.cfg.MessageMaxRunes)
			continue
		}

		item.Message = draft
		res.StagesRun = append(res.StagesRun, "messaging")
		if err := p.store.UpdateItem(ctx, item); err != nil {
			return err
		}
		trace.StageCompleted(ctx, "messaging", item.ID, string(item.Status))
		return nil
	}

	// All attempts missed: substitute the deterministic template and flag it.
	item.Message = fallbackMessage(item, p.cfg.MessageMaxRunes)
	item.MessageFallback = true
	item.MessageError = lastErr
	res.StagesRun = append(res.StagesRun, "messaging")
	trace.Logger(ctx).Warn("message fallback substituted",
		zap.String("item_id", item.ID),
		zap.String("reason", lastErr),
	)

	if err := p.store.UpdateItem(ctx, item); err != nil {
		return err
	}
	trace.StageCompleted(ctx, "messaging", item.ID, string(item.Status))
	return nil
}

// fallbackMessage builds the deterministic outreach template from persisted
// item fields only, so retries produce the identical message.
func fallbackMessage(item *model.Item, maxRunes int) string {
	role := "your open roles"
	if len(item.Stage3Roles) > 0 {
		role = "your " + item.Stage3Roles[0] + " opening"
	} else if len(item.Stage1Roles) > 0 {
		role = "your " + item.Stage1Roles[0] + " opening"
	}

	greeting := "Hi"
	if name := firstName(item.AuthorName); name != "" {
		greeting = "Hi " + name
	}

	msg := fmt.Sprintf("%s, I saw your post about %s. We work with vetted candidates in this space and may be able to shorten your search. Would you be open to a quick chat?", greeting, role)
	return truncateRunes(msg, maxRunes)
}

func firstName(full string) string {
	fields := strings.Fields(strings.TrimSpace(full))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
