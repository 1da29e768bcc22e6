package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/registry"
	"github.com/talentsignal/signal-cli/internal/store"
	"github.com/talentsignal/signal-cli/pkg/anthropic"
	"github.com/talentsignal/signal-cli/pkg/enrich"
)

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Resolve(ctx context.Context, profileID string) (*enrich.Profile, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrich.Profile), args.Error(1)
}

// System prompt fragments used to route mock expectations to the right stage.
const (
	sysStage1  = "screen social media posts"
	sysStage2  = "language and likely territory"
	sysStage3  = "exactly one category"
	sysMessage = "outreach messages"
)

// expectOracle registers a CreateMessage expectation matched by a substring of
// the system prompt, so each stage can be scripted independently.
func expectOracle(o *mockOracle, systemContains string, resp *anthropic.MessageResponse, err error) *mock.Call {
	return o.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) > 0 && strings.Contains(req.System[0].Text, systemContains)
	})).Return(resp, err)
}

func textResponse(body string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:         "msg_test",
		Content:    []anthropic.ContentBlock{{Type: "text", Text: body}},
		StopReason: "end_turn",
		Usage:      anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
}

func testProfile(t *testing.T, employer, employerID string) *enrich.Profile {
	t.Helper()
	p := &enrich.Profile{
		PublicID:   "dana-wells",
		FullName:   "Dana Wells",
		Headline:   "VP Engineering",
		Employer:   employer,
		EmployerID: employerID,
		Title:      "VP Engineering",
		Phone:      "+1 555 0100",
		Positions: []enrich.Position{
			{Employer: employer, EmployerID: employerID, Title: "VP Engineering", StartDate: "2022-03"},
			{Employer: "Priorco", Title: "Engineering Manager", StartDate: "2018-01", EndDate: "2022-02"},
		},
	}
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	p.Raw = raw
	return p
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestPipeline(t *testing.T, st store.Store, oracle anthropic.Client, enricher enrich.Client) *Pipeline {
	t.Helper()
	return New(st, oracle, enricher, registry.DefaultCategories(), registry.DefaultLocales(), Config{
		FastModel: "claude-haiku-4-5-20251001",
		DeepModel: "claude-sonnet-4-5-20250929",
	})
}

// seedItem inserts one pending item and returns it with its assigned ID.
func seedItem(t *testing.T, st store.Store, urn string, mutate func(*model.Item)) *model.Item {
	t.Helper()
	it := model.Item{
		URN:              urn,
		Text:             "We are hiring a backend engineer for my platform team in Austin. DM me.",
		Title:            "VP Engineering at Wellspring Health",
		AuthorName:       "Dana Wells",
		AuthorProfileID:  "dana-wells",
		AuthorProfileURL: "https://example.com/in/dana-wells",
	}
	if mutate != nil {
		mutate(&it)
	}
	n, err := st.InsertItems(context.Background(), []model.Item{it})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := st.GetItemByURN(context.Background(), urn)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}
