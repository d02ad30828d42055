package activerole

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-brokerage-crm/internal/model"
)

type memoryPersister struct {
	stored  Snapshot
	loads   int
	saves   int
	loadErr error
}

func (m *memoryPersister) Load() (Snapshot, error) {
	m.loads++
	return m.stored, m.loadErr
}

func (m *memoryPersister) Save(s Snapshot) error {
	m.saves++
	m.stored = s
	return nil
}

func TestInitForUserIsNoopWhileUnhydrated(t *testing.T) {
	p := &memoryPersister{}
	s := NewStore(p)

	changed, err := s.InitForUser("u1", model.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, Snapshot{}, s.Snapshot())
	assert.Equal(t, Unhydrated, s.Phase())
	assert.Zero(t, p.saves)
}

func TestRehydrateRunsOnce(t *testing.T) {
	p := &memoryPersister{stored: Snapshot{UserID: "u1", ActiveRole: model.RoleMFDealer}}
	s := NewStore(p)

	require.NoError(t, s.Rehydrate())
	assert.Equal(t, Hydrated, s.Phase())
	assert.Equal(t, model.RoleMFDealer, s.ActiveRole())

	p.stored = Snapshot{UserID: "u9", ActiveRole: model.RoleAdmin}
	require.NoError(t, s.Rehydrate())
	assert.Equal(t, 1, p.loads)
	assert.Equal(t, "u1", s.UserID())
}

func TestRoleForNewLoginSurvivesInit(t *testing.T) {
	p := &memoryPersister{stored: Snapshot{UserID: "old", ActiveRole: model.RoleBackOffice}}
	s := NewStore(p)
	require.NoError(t, s.Rehydrate())

	require.NoError(t, s.SetRoleForNewLogin("u1", model.RoleEquityDealer))
	changed, err := s.InitForUser("u1", model.RoleMFDealer)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.RoleEquityDealer, s.ActiveRole())
	assert.Equal(t, Snapshot{UserID: "u1", ActiveRole: model.RoleEquityDealer}, p.stored)
}

func TestLoginChoiceBeforeHydrationIsNotStomped(t *testing.T) {
	p := &memoryPersister{stored: Snapshot{UserID: "u1", ActiveRole: model.RoleMFDealer}}
	s := NewStore(p)

	require.NoError(t, s.SetRoleForNewLogin("u1", model.RoleEquityDealer))
	_, err := s.InitForUser("u1", model.RoleMFDealer)
	require.NoError(t, err)
	require.NoError(t, s.Rehydrate())
	_, err = s.InitForUser("u1", model.RoleMFDealer)
	require.NoError(t, err)

	assert.Equal(t, model.RoleEquityDealer, s.ActiveRole())
}

func TestDifferentUserResets(t *testing.T) {
	p := &memoryPersister{stored: Snapshot{UserID: "u1", ActiveRole: model.RoleAdmin}}
	s := NewStore(p)
	require.NoError(t, s.Rehydrate())

	changed, err := s.InitForUser("u2", model.RoleBackOffice)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Snapshot{UserID: "u2", ActiveRole: model.RoleBackOffice}, s.Snapshot())
	assert.Equal(t, s.Snapshot(), p.stored)
}

func TestSameUserWithoutRoleGetsPrimary(t *testing.T) {
	p := &memoryPersister{stored: Snapshot{UserID: "u1"}}
	s := NewStore(p)
	require.NoError(t, s.Rehydrate())

	changed, err := s.InitForUser("u1", model.RoleEquityDealer)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.RoleEquityDealer, s.ActiveRole())

	changed, err = s.InitForUser("u1", model.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.RoleEquityDealer, s.ActiveRole())
}

func TestSetActiveRoleOverwrites(t *testing.T) {
	p := &memoryPersister{stored: Snapshot{UserID: "u1", ActiveRole: model.RoleBackOffice}}
	s := NewStore(p)
	require.NoError(t, s.Rehydrate())

	require.NoError(t, s.SetActiveRole(model.RoleAdmin))
	assert.Equal(t, Snapshot{UserID: "u1", ActiveRole: model.RoleAdmin}, p.stored)
}

func TestLoadErrorStillHydrates(t *testing.T) {
	p := &memoryPersister{loadErr: errors.New("storage unavailable")}
	s := NewStore(p)

	assert.Error(t, s.Rehydrate())
	assert.Equal(t, Hydrated, s.Phase())

	changed, err := s.InitForUser("u1", model.RoleMFDealer)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.RoleMFDealer, s.ActiveRole())
}
