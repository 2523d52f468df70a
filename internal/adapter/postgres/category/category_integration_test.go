//go:build integration

package category_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgcategory "github.com/alanyang/prompt-vault/internal/adapter/postgres/category"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	"github.com/alanyang/prompt-vault/internal/testutil"
)

func TestCategoryRepo_SaveListDelete(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgcategory.New(pool)
	id := "it-" + uuid.New().String()[:8]

	_, err := repo.Save(ctx, domainprompt.Category{ID: id, Name: "Integration", Order: 99})
	require.NoError(t, err)
	_, err = repo.Save(ctx, domainprompt.Category{ID: id, Name: "Renamed", Order: 99})
	require.NoError(t, err)

	cats, err := repo.List(ctx)
	require.NoError(t, err)
	var found *domainprompt.Category
	for i := range cats {
		if cats[i].ID == id {
			found = &cats[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Renamed", found.Name)

	require.NoError(t, repo.Delete(ctx, id))
	assert.ErrorIs(t, repo.Delete(ctx, id), domainprompt.ErrCategoryNotFound)
}
