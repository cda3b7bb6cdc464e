package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtepass1986/reallifeberlin/internal/auth"
	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
	"github.com/rtepass1986/reallifeberlin/internal/store/memory"
)

const sample = `
users:
  - email: Admin@RealLife.Berlin
    name: Admin
    password: changeme
    role: ADMIN
  - email: lea@reallife.berlin
    name: Lea
small_group_leaders:
  - id: leader-mitte
    name: Mia
    whatsapp: "+49 170 1111111"
    user_email: lea@reallife.berlin
`

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	file, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, file.Users, 2)
	require.Len(t, file.Leaders, 1)

	ctx := context.Background()
	s := memory.New()

	res, err := Apply(ctx, s, file, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersCreated: 2, LeadersCreated: 1}, res)

	admin, err := s.GetUserByEmail(ctx, "admin@reallife.berlin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NoError(t, auth.CheckPassword(admin.PasswordHash, "changeme"))

	lea, err := s.GetUserByEmail(ctx, "lea@reallife.berlin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, lea.Role)
	assert.Empty(t, lea.PasswordHash)

	leader, err := s.GetSmallGroupLeader(ctx, "leader-mitte")
	require.NoError(t, err)
	assert.Equal(t, lea.ID, leader.UserID)
	assert.Equal(t, "+49 170 1111111", leader.WhatsApp)

	res, err = Apply(ctx, s, file, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersSkipped: 2, LeadersSkipped: 1}, res)
}

func TestLoad_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown field": "users:\n  - email: a@b.de\n    name: A\n    phone: 1\n",
		"unknown role":  "users:\n  - email: a@b.de\n    name: A\n    role: OWNER\n",
		"missing email": "users:\n  - name: A\n",
		"leader name":   "small_group_leaders:\n  - whatsapp: '1'\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_Empty(t *testing.T) {
	file, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, file.Users)
}

func TestApply_UnknownLeaderUser(t *testing.T) {
	file := File{Leaders: []Leader{{Name: "Mia", UserEmail: "ghost@example.org"}}}
	_, err := Apply(context.Background(), memory.New(), file, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
