package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/prompt-vault/internal/adapter/memory"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

func TestPromptRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPromptRepository(memory.NewStore())
	p := domainprompt.New("Title", "Body", "", "writing", []string{"a"})

	_, err := repo.Create(ctx, p)
	require.NoError(t, err)
	_, err = repo.Create(ctx, p)
	assert.Error(t, err)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Versions[0].Content, got.Versions[0].Content)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domainprompt.ErrNotFound)
}

func TestPromptRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPromptRepository(memory.NewStore())

	older := domainprompt.New("Alpha", "write code", "", "coding", []string{"go"})
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := domainprompt.New("Beta", "write poems", "", "creative", nil)
	newer.Metadata.IsFavorite = true
	for _, p := range []domainprompt.Prompt{older, newer} {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, domainprompt.ListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Beta", all[0].Title, "newest first by default")

	coding, err := repo.List(ctx, domainprompt.ListFilters{Categories: []string{"coding"}})
	require.NoError(t, err)
	require.Len(t, coding, 1)
	assert.Equal(t, "Alpha", coding[0].Title)

	favs, err := repo.List(ctx, domainprompt.ListFilters{Favorites: true})
	require.NoError(t, err)
	require.Len(t, favs, 1)

	byTitle, err := repo.List(ctx, domainprompt.ListFilters{Text: "WRITE", SortBy: domainprompt.SortTitle})
	require.NoError(t, err)
	require.Len(t, byTitle, 2)
	assert.Equal(t, "Alpha", byTitle[0].Title)
}

func TestPromptRepository_UpdateKeepsStoredVersions(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPromptRepository(memory.NewStore())
	p := domainprompt.New("Title", "Body", "", "writing", nil)
	_, err := repo.Create(ctx, p)
	require.NoError(t, err)

	edited := p.Clone()
	edited.Versions[0].Content = "tampered"
	edited.Versions[0].Label = "baseline"
	edited.Content = "Body two"
	v := domainprompt.CreateVersion(edited, "")
	edited.Versions = append(edited.Versions, v)
	edited.Version = v.Version

	got, err := repo.Update(ctx, edited)
	require.NoError(t, err)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, "Body", got.Versions[0].Content)
	assert.Equal(t, "baseline", got.Versions[0].Label)

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, v.Version, stored.Version)
	assert.Equal(t, "Body two", stored.Content)

	_, err = repo.Update(ctx, domainprompt.New("x", "", "", "", nil))
	assert.ErrorIs(t, err, domainprompt.ErrNotFound)
}

func TestPromptRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPromptRepository(memory.NewStore())
	p := domainprompt.New("Title", "Body", "", "writing", nil)
	_, err := repo.Create(ctx, p)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), domainprompt.ErrNotFound)
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCategoryRepository(memory.NewStore())
	for _, c := range domainprompt.DefaultCategories {
		_, err := repo.Save(ctx, c)
		require.NoError(t, err)
	}

	cats, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainprompt.DefaultCategories, cats)

	require.NoError(t, repo.Delete(ctx, "coding"))
	assert.ErrorIs(t, repo.Delete(ctx, "coding"), domainprompt.ErrCategoryNotFound)
}
