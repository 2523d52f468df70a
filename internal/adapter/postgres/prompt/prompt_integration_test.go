//go:build integration

package prompt_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgprompt "github.com/alanyang/prompt-vault/internal/adapter/postgres/prompt"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	"github.com/alanyang/prompt-vault/internal/testutil"
)

func createTestPrompt(t *testing.T, repo *pgprompt.Repository, title string) domainprompt.Prompt {
	t.Helper()
	p := domainprompt.New(title, "Hello {{name}}", "greeting", "writing", []string{"it-" + uuid.New().String()[:8]})
	created, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Delete(context.Background(), created.ID) })
	return created
}

func TestPromptRepo_CreateAndGet(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgprompt.New(pool)

	created := createTestPrompt(t, repo, "Greeter")
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Greeter", got.Title)
	assert.Equal(t, domainprompt.InitialVersion, got.Version)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, "Initial version", got.Versions[0].Changes)
	require.Len(t, got.Variables, 1)
	assert.Equal(t, "name", got.Variables[0].Name)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domainprompt.ErrNotFound)
}

func TestPromptRepo_UpdateAppendsAndKeepsSnapshots(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgprompt.New(pool)
	p := createTestPrompt(t, repo, "Versioned")

	p.Content = "Hi there {{name}}"
	v := domainprompt.CreateVersion(p, "reword")
	p.Versions = append(p.Versions, v)
	p.Version = v.Version
	p.Versions[0].Label = "baseline"
	p.Versions[0].Content = "rewritten history"

	got, err := repo.Update(ctx, p)
	require.NoError(t, err)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, v.Version, got.Version)
	assert.Equal(t, "Hello {{name}}", got.Versions[0].Content, "stored snapshot text is immutable")
	assert.Equal(t, "baseline", got.Versions[0].Label)
	assert.Equal(t, v.Version, got.Versions[1].Version)
}

func TestPromptRepo_ListFilters(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgprompt.New(pool)
	p := createTestPrompt(t, repo, "Searchable "+uuid.New().String()[:8])

	got, err := repo.List(ctx, domainprompt.ListFilters{Tags: p.Tags})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)
	assert.Len(t, got[0].Versions, 1)

	got, err = repo.List(ctx, domainprompt.ListFilters{Text: p.Title[len("Searchable "):], SortBy: domainprompt.SortTitle})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestPromptRepo_Delete(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgprompt.New(pool)
	p := createTestPrompt(t, repo, "Doomed")

	require.NoError(t, repo.Delete(ctx, p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), domainprompt.ErrNotFound)
}
