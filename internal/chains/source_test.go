package chains

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/price-crawler/internal/model"
)

type fakeSource struct{ slug string }

func (f fakeSource) Slug() string { return f.slug }
func (f fakeSource) Fetch(ctx context.Context, date time.Time) ([]model.Store, error) {
	return nil, nil
}

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(fakeSource{"acme"}, fakeSource{"other"})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme", "other"}, r.Slugs())

	s, ok := r.Get("acme")
	require.True(t, ok)
	assert.Equal(t, "acme", s.Slug())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestNewRegistryRejectsBadSlugs(t *testing.T) {
	_, err := NewRegistry(fakeSource{"Acme"})
	assert.Error(t, err)

	_, err = NewRegistry(fakeSource{"acme"}, fakeSource{"acme"})
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	slugs := r.Slugs()
	assert.Contains(t, slugs, "konzum")
	assert.Contains(t, slugs, "plodine")
	assert.Contains(t, slugs, "dm")
	assert.Contains(t, slugs, "ktc")
	assert.Contains(t, slugs, "trgocentar")
	assert.Contains(t, slugs, "eurospin")
}
