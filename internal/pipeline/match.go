package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/trace"
)

// runMatching checks the author's employer against the client/vendor
// directory. Both flags can be set at once; the vendor flag controls
// downstream messaging and final status.
func (p *Pipeline) runMatching(ctx context.Context, item *model.Item, res *model.ProcessingResult) error {
	if err := p.setStatus(ctx, item, model.StatusMatchingRunning); err != nil {
		return err
	}
	trace.StageStarted(ctx, "matching", item.ID, item.URN)

	if item.EmployerID == "" && item.EmployerName == "" {
		trace.StageSkipped(ctx, "matching", item.ID, "no employer to match")
		res.StagesRun = append(res.StagesRun, "matching")
		return nil
	}

	match, err := p.store.MatchDirectory(ctx, item.EmployerID, item.EmployerName)
	if err != nil {
		trace.StageFailed(ctx, "matching", item.ID, item.RetryCount, err)
		return err
	}

	item.ClientMatch = match.Client != nil
	item.VendorMatch = match.Vendor != nil
	item.ClientMatchID = ""
	item.VendorMatchID = ""
	if match.Client != nil {
		item.ClientMatchID = match.Client.ID
	}
	if match.Vendor != nil {
		item.VendorMatchID = match.Vendor.ID
	}

	if item.ClientMatch || item.VendorMatch {
		trace.Logger(ctx).Info("employer matched directory",
			zap.String("item_id", item.ID),
			zap.String("employer", item.EmployerName),
			zap.Bool("client", item.ClientMatch),
			zap.Bool("vendor", item.VendorMatch),
		)
	}

	res.StagesRun = append(res.StagesRun, "matching")
	if err := p.store.UpdateItem(ctx, item); err != nil {
		return err
	}
	trace.StageCompleted(ctx, "matching", item.ID, string(item.Status))
	return nil
}
