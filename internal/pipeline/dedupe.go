package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/resilience"
	"github.com/talentsignal/signal-cli/internal/trace"
	"github.com/talentsignal/signal-cli/pkg/enrich"
)

// runDedup reconciles the finished item into the lead registry with one
// atomic upsert. A missing profile identifier is a validation failure: a lead
// without identity can never be deduplicated.
func (p *Pipeline) runDedup(ctx context.Context, item *model.Item, res *model.ProcessingResult) error {
	if err := p.setStatus(ctx, item, model.StatusDedupRunning); err != nil {
		return err
	}
	trace.StageStarted(ctx, "dedup", item.ID, item.URN)

	if item.AuthorProfileID == "" {
		err := resilience.NewValidationError("dedup: item %s has no author profile id", item.ID)
		trace.StageFailed(ctx, "dedup", item.ID, item.RetryCount, err)
		return err
	}

	lead := leadFromItem(item)

	existing, err := p.store.GetLeadByProfileID(ctx, lead.ProfileID)
	if err != nil {
		trace.StageFailed(ctx, "dedup", item.ID, item.RetryCount, err)
		return err
	}
	if existing == nil {
		if err := p.scanEmploymentHistory(ctx, lead); err != nil {
			trace.StageFailed(ctx, "dedup", item.ID, item.RetryCount, err)
			return err
		}
	}

	outcome, err := p.store.UpsertLead(ctx, lead)
	if err != nil {
		trace.StageFailed(ctx, "dedup", item.ID, item.RetryCount, err)
		return err
	}

	item.LeadID = &outcome.LeadID
	switch {
	case item.VendorMatch:
		item.Status = model.StatusCompletedVendor
	case outcome.Created:
		item.Status = model.StatusCompleted
	default:
		item.Status = model.StatusDuplicate
	}

	res.StagesRun = append(res.StagesRun, "dedup")
	res.LeadID = outcome.LeadID
	res.LeadCreated = outcome.Created

	if err := p.store.UpdateItem(ctx, item); err != nil {
		return err
	}
	trace.StageCompleted(ctx, "dedup", item.ID, string(item.Status))
	return nil
}

// scanEmploymentHistory checks the lead's past employers against the
// directory. Runs once, when the lead is first created. The current position
// is skipped because it was already matched upstream.
func (p *Pipeline) scanEmploymentHistory(ctx context.Context, lead *model.Lead) error {
	for _, emp := range lead.Employments {
		if emp.IsCurrent {
			continue
		}
		match, err := p.store.MatchDirectory(ctx, emp.EmployerID, emp.EmployerName)
		if err != nil {
			return err
		}
		if match.Client != nil && !lead.ClientMatch {
			lead.ClientMatch = true
			lead.ClientMatchID = match.Client.ID
			trace.Logger(ctx).Info("past employer matched client directory",
				zap.String("profile_id", lead.ProfileID),
				zap.String("employer", emp.EmployerName),
			)
		}
		if match.Vendor != nil && !lead.VendorMatch {
			lead.VendorMatch = true
			lead.VendorMatchID = match.Vendor.ID
			trace.Logger(ctx).Info("past employer matched vendor directory",
				zap.String("profile_id", lead.ProfileID),
				zap.String("employer", emp.EmployerName),
			)
		}
		if lead.ClientMatch && lead.VendorMatch {
			break
		}
	}
	return nil
}

// leadFromItem projects the item's accumulated fields onto the lead shape the
// store merges. Employment history is recomputed wholesale from the raw
// enrichment payload only when enrichment succeeded.
func leadFromItem(item *model.Item) *model.Lead {
	lead := &model.Lead{
		ProfileID:     item.AuthorProfileID,
		Name:          item.AuthorName,
		LastPostURL:   item.AuthorProfileURL,
		LastPostURN:   item.URN,
		LastPostedAt:  item.PostedAt,
		LastPostText:  item.Text,
		LastPostTitle: item.Title,
		Category:      item.Stage3Category,
		RoleTitles:    item.Stage3Roles,
		EmployerName:  item.EmployerName,
		Position:      item.Position,
		EmployerID:    item.EmployerID,
		Message:       item.Message,
		ClientMatch:   item.ClientMatch,
		ClientMatchID: item.ClientMatchID,
		VendorMatch:   item.VendorMatch,
		VendorMatchID: item.VendorMatchID,
	}

	if item.Enriched() {
		var profile enrich.Profile
		if err := json.Unmarshal(item.EnrichmentRaw, &profile); err != nil {
			zap.L().Warn("dedup: enrichment payload unreadable, employments not recomputed",
				zap.String("item_id", item.ID),
				zap.Error(err),
			)
		} else {
			lead.Headline = profile.Headline
			if profile.FullName != "" {
				lead.Name = profile.FullName
			}
			lead.Employments = employmentsFromProfile(&profile)
		}
	}

	return lead
}

// employmentsFromProfile maps provider positions onto the lead's employment
// history, newest first, capped at MaxEmploymentHistory.
func employmentsFromProfile(profile *enrich.Profile) []model.Employment {
	var out []model.Employment
	for _, pos := range profile.Positions {
		if pos.Employer == "" {
			continue
		}
		out = append(out, model.Employment{
			EmployerName:   pos.Employer,
			EmployerID:     pos.EmployerID,
			Title:          pos.Title,
			StartDate:      pos.StartDate,
			EndDate:        pos.EndDate,
			IsCurrent:      pos.EndDate == "",
			DurationMonths: durationMonths(pos.StartDate, pos.EndDate),
		})
		if len(out) >= model.MaxEmploymentHistory {
			break
		}
	}
	return out
}

// durationMonths computes whole months between two YYYY-MM dates. An open end
// date counts up to now; unparseable dates yield zero.
func durationMonths(start, end string) int {
	s, err := time.Parse("2006-01", start)
	if err != nil {
		return 0
	}
	e := time.Now().UTC()
	if end != "" {
		e, err = time.Parse("2006-01", end)
		if err != nil {
			return 0
		}
	}
	months := int(e.Year()-s.Year())*12 + int(e.Month()-s.Month())
	if months < 0 {
		return 0
	}
	return months
}
