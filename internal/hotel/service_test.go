package hotel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	hotels []*Hotel
}

func (m *memRepo) Create(_ context.Context, h *Hotel) error {
	h.ID = "hotel-1"
	m.hotels = append(m.hotels, h)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Hotel, error) {
	for _, h := range m.hotels {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) List(_ context.Context, _ Filter) ([]*Hotel, int, error) {
	return m.hotels, len(m.hotels), nil
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsTimezone", func(t *testing.T) {
		repo := &memRepo{}
		h, err := NewService(repo).Create(ctx, CreateRequest{Name: "  Seaside  "})
		require.NoError(t, err)
		assert.Equal(t, "Seaside", h.Name)
		assert.Equal(t, "UTC", h.Timezone)
		assert.Len(t, repo.hotels, 1)
	})

	t.Run("NameRequired", func(t *testing.T) {
		_, err := NewService(&memRepo{}).Create(ctx, CreateRequest{Name: " "})
		assert.ErrorIs(t, err, ErrNameRequired)
	})

	t.Run("InvalidTimezone", func(t *testing.T) {
		_, err := NewService(&memRepo{}).Create(ctx, CreateRequest{Name: "A", Timezone: "Mars/Olympus"})
		assert.ErrorIs(t, err, ErrInvalidTimezone)
	})
}

func TestGetByIDNotFound(t *testing.T) {
	_, err := NewService(&memRepo{}).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
