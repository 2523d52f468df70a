package prompt_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/prompt-vault/internal/domain/event"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	"github.com/alanyang/prompt-vault/internal/metrics"
	"github.com/alanyang/prompt-vault/internal/mocks"
	"github.com/alanyang/prompt-vault/internal/service/export"
	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type svcDeps struct {
	repo       *mocks.MockPromptRepository
	categories *mocks.MockCategoryRepository
	tags       *mocks.MockTagRepository
	bus        *mocks.MockEventBus
	locker     *mocks.MockAdvisoryLocker
}

func newPromptSvc(t *testing.T) (*promptsvc.Service, svcDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := svcDeps{
		repo:       mocks.NewMockPromptRepository(ctrl),
		categories: mocks.NewMockCategoryRepository(ctrl),
		tags:       mocks.NewMockTagRepository(ctrl),
		bus:        mocks.NewMockEventBus(ctrl),
		locker:     mocks.NewMockAdvisoryLocker(ctrl),
	}
	d.locker.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ int64, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()
	return promptsvc.NewService(d.repo, d.categories, d.tags, d.bus, d.locker, nil), d
}

// echoUpdate makes repo.Update return whatever it was given.
func echoUpdate(d svcDeps) {
	d.repo.EXPECT().Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
			return p, nil
		})
}

func matchEventType(et event.Type) gomock.Matcher {
	return eventTypeMatcher{et}
}

type eventTypeMatcher struct{ want event.Type }

func (m eventTypeMatcher) Matches(x interface{}) bool {
	e, ok := x.(event.Event)
	return ok && e.Type == m.want
}
func (m eventTypeMatcher) String() string { return "event.Type=" + string(m.want) }

// twoVersions returns a prompt at v2.0.0 whose v1.0.0 text differs entirely.
func twoVersions() domainprompt.Prompt {
	p := domainprompt.New("Greeter", "alpha beta", "", "writing", nil)
	p.Content = "gamma delta"
	v := domainprompt.CreateVersion(p, "rewrite")
	p.Versions = append(p.Versions, v)
	p.Version = v.Version
	return p
}

func strPtr(s string) *string { return &s }

// ── Create ────────────────────────────────────────────────────────────────────

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		in      promptsvc.NewPrompt
		setup   func(d svcDeps)
		wantErr error
		wantMsg string
	}{
		{
			name: "success stores initial version",
			in:   promptsvc.NewPrompt{Title: "Summary", Content: "Summarize {{text}}", Category: "writing", Author: "ana"},
			setup: func(d svcDeps) {
				d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
						return p, nil
					})
				d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptCreated)).Return(nil)
			},
		},
		{
			name:    "missing title",
			in:      promptsvc.NewPrompt{Content: "x"},
			setup:   func(d svcDeps) {},
			wantErr: domainprompt.ErrInvalid,
		},
		{
			name: "repo error",
			in:   promptsvc.NewPrompt{Title: "t"},
			setup: func(d svcDeps) {
				d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domainprompt.Prompt{}, errors.New("db error"))
			},
			wantMsg: "create prompt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newPromptSvc(t)
			tt.setup(d)

			got, err := svc.Create(context.Background(), tt.in)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, domainprompt.InitialVersion, got.Version)
				require.Len(t, got.Versions, 1)
				assert.Equal(t, "Initial version", got.Versions[0].Changes)
				assert.Equal(t, "ana", got.Metadata.Author)
				assert.True(t, got.Metadata.IsTemplate)
				assert.Equal(t, []string{}, got.Tags)
			}
		})
	}
}

// ── Update ────────────────────────────────────────────────────────────────────

func TestUpdate_TitleChangeCreatesMinorVersion(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := domainprompt.New("Old", "same content", "", "writing", nil)
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	echoUpdate(d)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptUpdated)).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeVersionCreated)).Return(nil)

	got, err := svc.Update(context.Background(), p.ID, promptsvc.Edit{Title: strPtr("New"), Changes: "rename"})
	require.NoError(t, err)
	assert.Equal(t, "v1.1.0", got.Version)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, "rename", got.Versions[1].Changes)
	assert.Equal(t, "New", got.Versions[1].Title)
}

func TestUpdate_ContentRewriteCreatesMajorVersion(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := domainprompt.New("T", "one two three", "", "writing", nil)
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	echoUpdate(d)
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	got, err := svc.Update(context.Background(), p.ID, promptsvc.Edit{Content: strPtr("Hello {{name}}")})
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", got.Version)
	assert.NotEmpty(t, got.Versions[1].Changes)
	assert.True(t, got.Metadata.IsTemplate)
	require.Len(t, got.Variables, 1)
	assert.Equal(t, "name", got.Variables[0].Name)
}

func TestVersionMetrics_LabelledByComputedChangeType(t *testing.T) {
	_, d := newPromptSvc(t)
	m := metrics.New(prometheus.NewRegistry())
	svc := promptsvc.NewService(d.repo, d.categories, d.tags, d.bus, d.locker, m)
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
			return p, nil
		})

	created, err := svc.Create(context.Background(), promptsvc.NewPrompt{Title: "T", Content: "alpha beta"})
	require.NoError(t, err)

	// A trailing newline adds an empty token: a small edit, not a rewrite.
	d.repo.EXPECT().GetByID(gomock.Any(), created.ID).Return(created, nil)
	echoUpdate(d)
	edited, err := svc.Update(context.Background(), created.ID, promptsvc.Edit{Content: strPtr("alpha beta\n")})
	require.NoError(t, err)
	require.Equal(t, "v1.1.0", edited.Version)

	d.repo.EXPECT().GetByID(gomock.Any(), created.ID).Return(edited, nil)
	echoUpdate(d)
	_, err = svc.Update(context.Background(), created.ID, promptsvc.Edit{Content: strPtr("something else entirely")})
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.VersionsCreated.WithLabelValues("initial")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.VersionsCreated.WithLabelValues(string(domainprompt.ChangeMinor))))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.VersionsCreated.WithLabelValues(string(domainprompt.ChangeMajor))))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(m.VersionsCreated.WithLabelValues(string(domainprompt.ChangePatch))))
}

func TestUpdate_MetadataOnlyDoesNotVersion(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := domainprompt.New("T", "body", "", "writing", nil)
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	echoUpdate(d)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptUpdated)).Return(nil)

	tags := []string{"x"}
	got, err := svc.Update(context.Background(), p.ID, promptsvc.Edit{
		Category: strPtr("coding"),
		Tags:     &tags,
		Content:  strPtr("body"),
	})
	require.NoError(t, err)
	assert.Equal(t, domainprompt.InitialVersion, got.Version)
	assert.Len(t, got.Versions, 1)
	assert.Equal(t, "coding", got.Category)
	assert.Equal(t, []string{"x"}, got.Tags)
}

func TestUpdate_EmptyTitleRejected(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := domainprompt.New("T", "body", "", "writing", nil)
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)

	_, err := svc.Update(context.Background(), p.ID, promptsvc.Edit{Title: strPtr("")})
	assert.ErrorIs(t, err, domainprompt.ErrInvalid)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, d := newPromptSvc(t)
	d.repo.EXPECT().GetByID(gomock.Any(), gomock.Any()).
		Return(domainprompt.Prompt{}, domainprompt.ErrNotFound)

	_, err := svc.Update(context.Background(), uuid.New(), promptsvc.Edit{Content: strPtr("x")})
	assert.ErrorIs(t, err, domainprompt.ErrNotFound)
	assert.Contains(t, err.Error(), "update prompt")
}

func TestUpdate_PublishFailureIsNotReturned(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := domainprompt.New("T", "body", "", "writing", nil)
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	echoUpdate(d)
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("bus down")).AnyTimes()

	_, err := svc.Update(context.Background(), p.ID, promptsvc.Edit{Content: strPtr("body v2")})
	assert.NoError(t, err)
}

// ── Restore ───────────────────────────────────────────────────────────────────

func TestRestore(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	require.Equal(t, "v2.0.0", p.Version)
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	echoUpdate(d)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptRestored)).Return(nil)

	got, err := svc.Restore(context.Background(), p.ID, domainprompt.InitialVersion)
	require.NoError(t, err)
	assert.Equal(t, "alpha beta", got.Content)
	assert.Equal(t, "v3.0.0", got.Version)
	require.Len(t, got.Versions, 3)
	assert.Equal(t, "Restored to version v1.0.0", got.Versions[2].Changes)
	assert.Equal(t, "gamma delta", got.Versions[1].Content, "history is not rewritten")
	assert.NoError(t, domainprompt.Validate(got))
}

func TestRestore_VersionNotFound(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)

	_, err := svc.Restore(context.Background(), p.ID, "v9.9.9")
	assert.ErrorIs(t, err, domainprompt.ErrVersionNotFound)
}

// ── Label ─────────────────────────────────────────────────────────────────────

func TestLabel(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	echoUpdate(d)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeVersionLabelled)).Return(nil)

	got, err := svc.Label(context.Background(), p.ID, domainprompt.InitialVersion, "baseline")
	require.NoError(t, err)
	assert.Equal(t, "baseline", got.Versions[0].Label)
	assert.Equal(t, p.Versions[0].Content, got.Versions[0].Content)
	assert.Equal(t, p.Version, got.Version)
}

func TestLabel_UnknownVersion(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)

	_, err := svc.Label(context.Background(), p.ID, "v5.0.0", "x")
	assert.ErrorIs(t, err, domainprompt.ErrVersionNotFound)
}

// ── Read paths ────────────────────────────────────────────────────────────────

func TestHistoryAndLatest(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil).Times(2)

	history, err := svc.History(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "v2.0.0", history[0].Version)

	latest, err := svc.Latest(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", latest.Version)
}

func TestCompare(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil).AnyTimes()

	t.Run("defaults to current against previous", func(t *testing.T) {
		c, err := svc.Compare(context.Background(), p.ID, "", "")
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0", c.From.Version)
		assert.Equal(t, "v2.0.0", c.To.Version)
		assert.Equal(t, 1, c.Stats.Added)
		assert.Equal(t, 1, c.Stats.Removed)
	})

	t.Run("same version is all unchanged", func(t *testing.T) {
		c, err := svc.Compare(context.Background(), p.ID, "v1.0.0", "v1.0.0")
		require.NoError(t, err)
		assert.Equal(t, 1, c.Stats.Unchanged)
		assert.Zero(t, c.Stats.Added)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := svc.Compare(context.Background(), p.ID, "v0.0.1", "")
		assert.ErrorIs(t, err, domainprompt.ErrVersionNotFound)
	})
}

func TestRecordUsage(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	p.Metadata.UsageCount = 4
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	echoUpdate(d)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptUsed)).Return(nil)

	got, err := svc.RecordUsage(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Metadata.UsageCount)
	require.NotNil(t, got.Metadata.LastUsedAt)
	assert.Equal(t, p.Version, got.Version)
}

func TestDelete(t *testing.T) {
	svc, d := newPromptSvc(t)
	id := uuid.New()
	d.repo.EXPECT().Delete(gomock.Any(), id).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptDeleted)).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), id))
}

// ── Export / import ──────────────────────────────────────────────────────────

func TestExport_AllPrompts(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	p.Tags = []string{"greeting"}
	d.repo.EXPECT().List(gomock.Any(), gomock.Any()).Return([]domainprompt.Prompt{p}, nil)
	d.categories.EXPECT().List(gomock.Any()).Return(domainprompt.DefaultCategories, nil)
	d.tags.EXPECT().List(gomock.Any()).Return([]domainprompt.Tag{
		{ID: "t1", Name: "greeting", UsageCount: 3},
		{ID: "t2", Name: "unrelated", UsageCount: 7},
	}, nil)

	f, err := svc.Export(context.Background(), promptsvc.ExportRequest{Format: export.FormatJSON})
	require.NoError(t, err)

	var b export.Bundle
	require.NoError(t, json.Unmarshal(f.Data, &b))
	require.Len(t, b.Prompts, 1)
	assert.Len(t, b.Prompts[0].Versions, 2)
	require.Len(t, b.Categories, 1)
	require.Len(t, b.Tags, 1)
	assert.Equal(t, "greeting", b.Tags[0].Name)
}

func TestExport_TagListError(t *testing.T) {
	svc, d := newPromptSvc(t)
	d.repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil)
	d.categories.EXPECT().List(gomock.Any()).Return(nil, nil)
	d.tags.EXPECT().List(gomock.Any()).Return(nil, errors.New("db error"))

	_, err := svc.Export(context.Background(), promptsvc.ExportRequest{Format: export.FormatJSON})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list tags")
}

func TestExport_SelectedVersion(t *testing.T) {
	svc, d := newPromptSvc(t)
	p := twoVersions()
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	d.categories.EXPECT().List(gomock.Any()).Return(nil, nil)
	d.tags.EXPECT().List(gomock.Any()).Return(nil, nil)

	f, err := svc.Export(context.Background(), promptsvc.ExportRequest{
		Items:  []promptsvc.ExportItem{{ID: p.ID, Version: "v1.0.0"}},
		Format: export.FormatMarkdown,
	})
	require.NoError(t, err)
	assert.Contains(t, string(f.Data), "alpha beta")
	assert.NotContains(t, string(f.Data), "gamma delta")
}

func TestImport(t *testing.T) {
	svc, d := newPromptSvc(t)
	existing := twoVersions()
	fresh := domainprompt.New("Fresh", "body", "", "coding", nil)
	broken := export.Record{ID: uuid.New(), Content: "no title"}

	b := export.Prepare([]export.Item{
		{Prompt: existing, IncludeHistory: true},
		{Prompt: fresh, IncludeHistory: true},
	}, domainprompt.DefaultCategories, nil)
	b.Prompts = append(b.Prompts, broken)
	b.Tags = []domainprompt.Tag{{ID: "t1", Name: "kept"}, {Name: "fresh"}}

	d.categories.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c domainprompt.Category) (domainprompt.Category, error) {
			return c, nil
		}).Times(len(b.Categories))
	var savedTags []domainprompt.Tag
	d.tags.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tag domainprompt.Tag) (domainprompt.Tag, error) {
			savedTags = append(savedTags, tag)
			return tag, nil
		}).Times(2)
	d.repo.EXPECT().GetByID(gomock.Any(), existing.ID).Return(existing, nil)
	d.repo.EXPECT().GetByID(gomock.Any(), fresh.ID).Return(domainprompt.Prompt{}, domainprompt.ErrNotFound)
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
			assert.Equal(t, fresh.ID, p.ID)
			return p, nil
		})
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptCreated)).Return(nil)

	res, err := svc.Import(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, savedTags, 2)
	assert.Equal(t, "t1", savedTags[0].ID)
	assert.NotEmpty(t, savedTags[1].ID, "tags without an id get one")
}

func TestImport_SkipsRecordBehindItsHistory(t *testing.T) {
	svc, _ := newPromptSvc(t)
	stale := twoVersions()
	stale.Version = domainprompt.InitialVersion

	b := export.Prepare([]export.Item{{Prompt: stale, IncludeHistory: true}}, nil, nil)

	res, err := svc.Import(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, promptsvc.ImportResult{Created: 0, Skipped: 1}, res)
}
