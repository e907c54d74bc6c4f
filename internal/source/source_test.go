package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-engine/internal/model"
)

func TestCollectGathersNotesPerClient(t *testing.T) {
	src := Static{Data: Data{
		Clients:  []model.Client{{Code: 1}, {Code: 2}},
		Policies: []model.Policy{{ID: 1, ClientCode: 1}},
		Notes: []model.Note{
			{ClientCode: 2, Lines: []string{"x"}},
			{ClientCode: 9, Lines: []string{"orphan"}},
			{ClientCode: 1, Lines: []string{"y"}},
		},
	}}

	d, err := Collect(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, d.Clients, 2)
	assert.Len(t, d.Policies, 1)
	require.Len(t, d.Notes, 2)
	assert.Equal(t, 1, d.Notes[0].ClientCode)
	assert.Equal(t, 2, d.Notes[1].ClientCode)
}

func TestCollectWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Collect(context.Background(), Static{Err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list clients")
}
