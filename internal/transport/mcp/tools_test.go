package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	"github.com/alanyang/prompt-vault/internal/mocks"
	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type toolsDeps struct {
	repo       *mocks.MockPromptRepository
	categories *mocks.MockCategoryRepository
	tags       *mocks.MockTagRepository
	bus        *mocks.MockEventBus
	locker     *mocks.MockAdvisoryLocker
}

func newToolsDeps(t *testing.T) (*promptsvc.Service, toolsDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := toolsDeps{
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
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return promptsvc.NewService(d.repo, d.categories, d.tags, d.bus, d.locker, nil), d
}

// echoUpdate makes repo.Update return whatever it was given.
func echoUpdate(d toolsDeps) {
	d.repo.EXPECT().Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
			return p, nil
		})
}

func makeReq(args map[string]any) mcpmcp.CallToolRequest {
	var req mcpmcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(r *mcpmcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	b, _ := json.Marshal(r.Content[0])
	var m map[string]interface{}
	json.Unmarshal(b, &m) //nolint:errcheck
	if t, ok := m["text"].(string); ok {
		return t
	}
	return ""
}

// twoVersions returns a prompt at v2.0.0 whose v1.0.0 text differs entirely.
func twoVersions() domainprompt.Prompt {
	p := domainprompt.New("Greeter", "alpha beta", "", "writing", []string{"greeting"})
	p.Content = "gamma delta"
	v := domainprompt.CreateVersion(p, "rewrite")
	p.Versions = append(p.Versions, v)
	p.Version = v.Version
	return p
}

// ── list_prompts ──────────────────────────────────────────────────────────────

func TestListPromptsHandler(t *testing.T) {
	svc, d := newToolsDeps(t)
	p := twoVersions()
	d.repo.EXPECT().List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f domainprompt.ListFilters) ([]domainprompt.Prompt, error) {
			assert.Equal(t, "greet", f.Text)
			assert.Equal(t, []string{"writing"}, f.Categories)
			assert.Equal(t, domainprompt.SortUsageCount, f.SortBy)
			assert.True(t, f.Descending)
			assert.Empty(t, f.Tags)
			return []domainprompt.Prompt{p}, nil
		})

	res, err := listPromptsHandler(svc)(context.Background(), makeReq(map[string]any{
		"query":    "greet",
		"category": "writing",
	}))
	require.NoError(t, err)

	var got []promptSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)
	assert.Equal(t, "v2.0.0", got[0].Version)
}

func TestListPromptsHandler_RepoError(t *testing.T) {
	svc, d := newToolsDeps(t)
	d.repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	res, err := listPromptsHandler(svc)(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "error:")
}

// ── get_prompt ────────────────────────────────────────────────────────────────

func TestGetPromptHandler(t *testing.T) {
	p := twoVersions()
	tests := []struct {
		name         string
		args         map[string]any
		setup        func(d toolsDeps)
		wantContains string
	}{
		{
			name:         "current prompt returned",
			args:         map[string]any{"id": p.ID.String()},
			setup:        func(d toolsDeps) { d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil) },
			wantContains: `"content":"gamma delta"`,
		},
		{
			name:         "older snapshot returned when version given",
			args:         map[string]any{"id": p.ID.String(), "version": "v1.0.0"},
			setup:        func(d toolsDeps) { d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil) },
			wantContains: `"content":"alpha beta"`,
		},
		{
			name:         "unknown version returns error text",
			args:         map[string]any{"id": p.ID.String(), "version": "v4.0.0"},
			setup:        func(d toolsDeps) { d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil) },
			wantContains: "error: version v4.0.0 not found",
		},
		{
			name:         "invalid id returns error text",
			args:         map[string]any{"id": "nope"},
			setup:        func(d toolsDeps) {},
			wantContains: "error: invalid id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newToolsDeps(t)
			tt.setup(d)

			res, err := getPromptHandler(svc)(context.Background(), makeReq(tt.args))
			require.NoError(t, err)
			assert.Contains(t, resultText(res), tt.wantContains)
		})
	}
}

// ── save_prompt ───────────────────────────────────────────────────────────────

func TestSavePromptHandler_Create(t *testing.T) {
	svc, d := newToolsDeps(t)
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
			assert.Equal(t, "Greeter", p.Title)
			assert.Equal(t, []string{"a", "b"}, p.Tags)
			assert.Equal(t, "mcp", p.Metadata.Source)
			return p, nil
		})

	res, err := savePromptHandler(svc)(context.Background(), makeReq(map[string]any{
		"title":   "Greeter",
		"content": "Hello {{name}}",
		"tags":    "a, b,,",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), `"version":"v1.0.0"`)
}

func TestSavePromptHandler_CreateWithoutTitle(t *testing.T) {
	svc, _ := newToolsDeps(t)

	res, err := savePromptHandler(svc)(context.Background(), makeReq(map[string]any{"content": "x"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "title is required")
}

func TestSavePromptHandler_Update(t *testing.T) {
	svc, d := newToolsDeps(t)
	p := domainprompt.New("Greeter", "alpha beta", "", "writing", []string{"keep"})
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	d.repo.EXPECT().Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, got domainprompt.Prompt) (domainprompt.Prompt, error) {
			// Absent arguments leave fields untouched.
			assert.Equal(t, "Greeter", got.Title)
			assert.Equal(t, []string{"keep"}, got.Tags)
			assert.Equal(t, "gamma delta", got.Content)
			return got, nil
		})

	res, err := savePromptHandler(svc)(context.Background(), makeReq(map[string]any{
		"id":      p.ID.String(),
		"content": "gamma delta",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), `"version":"v2.0.0"`)
}

// ── version_history / compare_versions / restore_version ─────────────────────

func TestVersionHistoryHandler(t *testing.T) {
	svc, d := newToolsDeps(t)
	p := twoVersions()
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)

	res, err := versionHistoryHandler(svc)(context.Background(), makeReq(map[string]any{"id": p.ID.String()}))
	require.NoError(t, err)

	var got []domainprompt.Version
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "v2.0.0", got[0].Version)
}

func TestCompareVersionsHandler(t *testing.T) {
	svc, d := newToolsDeps(t)
	p := twoVersions()
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)

	res, err := compareVersionsHandler(svc)(context.Background(), makeReq(map[string]any{"id": p.ID.String()}))
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0 -> v2.0.0: +1 -1 (0 unchanged)\n- alpha beta\n+ gamma delta", resultText(res))
}

func TestRestoreVersionHandler(t *testing.T) {
	tests := []struct {
		name         string
		args         func(p domainprompt.Prompt) map[string]any
		setup        func(d toolsDeps, p domainprompt.Prompt)
		wantContains string
	}{
		{
			name: "restore appends a new version",
			args: func(p domainprompt.Prompt) map[string]any {
				return map[string]any{"id": p.ID.String(), "version": "v1.0.0"}
			},
			setup: func(d toolsDeps, p domainprompt.Prompt) {
				d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
				echoUpdate(d)
			},
			wantContains: `"version":"v3.0.0"`,
		},
		{
			name: "missing version returns error text",
			args: func(p domainprompt.Prompt) map[string]any {
				return map[string]any{"id": p.ID.String()}
			},
			setup:        func(d toolsDeps, p domainprompt.Prompt) {},
			wantContains: "error: version is required",
		},
		{
			name: "unknown prompt returns error text",
			args: func(p domainprompt.Prompt) map[string]any {
				return map[string]any{"id": p.ID.String(), "version": "v1.0.0"}
			},
			setup: func(d toolsDeps, p domainprompt.Prompt) {
				d.repo.EXPECT().GetByID(gomock.Any(), p.ID).
					Return(domainprompt.Prompt{}, fmt.Errorf("prompt %s: %w", p.ID, domainprompt.ErrNotFound))
			},
			wantContains: "prompt not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newToolsDeps(t)
			p := twoVersions()
			tt.setup(d, p)

			res, err := restoreVersionHandler(svc)(context.Background(), makeReq(tt.args(p)))
			require.NoError(t, err)
			assert.Contains(t, resultText(res), tt.wantContains)
		})
	}
}

// ── use_prompt ────────────────────────────────────────────────────────────────

func TestUsePromptHandler(t *testing.T) {
	svc, d := newToolsDeps(t)
	p := domainprompt.New("Greeter", "Hello {{name}}, welcome to {{place}}", "", "writing", nil)
	d.repo.EXPECT().GetByID(gomock.Any(), p.ID).Return(p, nil)
	echoUpdate(d)

	var req mcpmcp.GetPromptRequest
	req.Params.Arguments = map[string]string{
		"id":     p.ID.String(),
		"values": `{"name": "Ada"}`,
	}
	res, err := usePromptHandler(svc)(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)

	text, ok := res.Messages[0].Content.(mcpmcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Hello Ada, welcome to {{place}}", text.Text)
	assert.Equal(t, "Greeter (v1.0.0)", res.Description)
}

func TestUsePromptHandler_BadArguments(t *testing.T) {
	svc, _ := newToolsDeps(t)

	var req mcpmcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"id": "nope"}
	_, err := usePromptHandler(svc)(context.Background(), req)
	assert.Error(t, err)

	req.Params.Arguments = map[string]string{"id": uuid.New().String(), "values": "{broken"}
	_, err = usePromptHandler(svc)(context.Background(), req)
	assert.Error(t, err)
}
