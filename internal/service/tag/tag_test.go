package tag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/prompt-vault/internal/domain/event"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	"github.com/alanyang/prompt-vault/internal/mocks"
	tagsvc "github.com/alanyang/prompt-vault/internal/service/tag"
)

func newTagSvc(t *testing.T) (*tagsvc.Service, *mocks.MockTagRepository, *mocks.MockEventBus) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTagRepository(ctrl)
	bus := mocks.NewMockEventBus(ctrl)
	return tagsvc.NewService(repo, bus), repo, bus
}

func TestList_SortsByUsage(t *testing.T) {
	svc, repo, _ := newTagSvc(t)
	repo.EXPECT().List(gomock.Any()).Return([]domainprompt.Tag{
		{ID: "1", Name: "once", UsageCount: 1},
		{ID: "2", Name: "often", UsageCount: 12},
		{ID: "3", Name: "never"},
	}, nil)

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "often", got[0].Name)
	assert.Equal(t, "once", got[1].Name)
	assert.Equal(t, "never", got[2].Name)
}

func TestSave(t *testing.T) {
	tests := []struct {
		name    string
		in      domainprompt.Tag
		wantErr bool
	}{
		{name: "keeps given id", in: domainprompt.Tag{ID: "fixed", Name: "review"}},
		{name: "empty id gets uuid", in: domainprompt.Tag{Name: "review", Color: "#ff0000"}},
		{name: "blank name", in: domainprompt.Tag{ID: "fixed", Name: "  "}, wantErr: true},
		{name: "negative usage", in: domainprompt.Tag{Name: "review", UsageCount: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, bus := newTagSvc(t)
			if !tt.wantErr {
				repo.EXPECT().Save(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tag domainprompt.Tag) (domainprompt.Tag, error) {
						return tag, nil
					})
				bus.EXPECT().Publish(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, e event.Event) error {
						assert.Equal(t, event.TypeTagSaved, e.Type)
						return nil
					})
			}

			got, err := svc.Save(context.Background(), tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domainprompt.ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in.Name, got.Name)
			if tt.in.ID != "" {
				assert.Equal(t, tt.in.ID, got.ID)
				return
			}
			_, parseErr := uuid.Parse(got.ID)
			assert.NoError(t, parseErr)
		})
	}
}

func TestDelete(t *testing.T) {
	t.Run("publishes on success", func(t *testing.T) {
		svc, repo, bus := newTagSvc(t)
		repo.EXPECT().Delete(gomock.Any(), "x").Return(nil)
		bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		require.NoError(t, svc.Delete(context.Background(), "x"))
	})

	t.Run("wraps repo error", func(t *testing.T) {
		svc, repo, _ := newTagSvc(t)
		repo.EXPECT().Delete(gomock.Any(), "x").Return(errors.New("db error"))

		err := svc.Delete(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete tag")
	})
}
