package services

import (
	"context"
	"testing"
	"time"

	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/framehire/framehire-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentInvite struct {
	To        string
	RoleName  string
	InviteURL string
}

// recordingSender captures invite emails on a channel so tests can wait for
// the fire-and-forget send.
type recordingSender struct {
	sent chan sentInvite
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan sentInvite, 4)}
}

func (r *recordingSender) SendInvite(_ context.Context, toEmail, roleName, inviteURL string) error {
	r.sent <- sentInvite{To: toEmail, RoleName: roleName, InviteURL: inviteURL}
	return nil
}

func (r *recordingSender) waitForInvite(t *testing.T) sentInvite {
	t.Helper()
	select {
	case msg := <-r.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("invite email was never sent")
		return sentInvite{}
	}
}

func newTestInviteService(t *testing.T) (*InviteService, *recordingSender, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	sender := newRecordingSender()
	roles := NewRoleService(db, newTestTokenService())
	return NewInviteService(db, roles, sender, "https://framehire.test/", 0), sender, db
}

func TestCreateInvite_StoresHashAndSendsEmail(t *testing.T) {
	t.Parallel()

	svc, sender, db := newTestInviteService(t)
	adminID := uuid.New()

	invite, rawToken, err := svc.CreateInvite(context.Background(), adminID, "New@Editor.com", "video_editor")
	require.NoError(t, err)

	assert.Equal(t, "new@editor.com", invite.Email)
	assert.Equal(t, "VIDEO_EDITOR", invite.RoleName)
	assert.Equal(t, adminID, invite.InvitedBy)
	assert.NotEmpty(t, rawToken)

	// Only the hash hits the database.
	var stored models.Invite
	require.NoError(t, db.First(&stored, "id = ?", invite.ID).Error)
	assert.NotEqual(t, rawToken, stored.TokenHash)
	assert.Equal(t, hashToken(rawToken), stored.TokenHash)

	msg := sender.waitForInvite(t)
	assert.Equal(t, "new@editor.com", msg.To)
	assert.Equal(t, "VIDEO_EDITOR", msg.RoleName)
	assert.Equal(t, "https://framehire.test/invite?token="+rawToken, msg.InviteURL)
}

func TestCreateInvite_UnknownRole(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestInviteService(t)
	_, _, err := svc.CreateInvite(context.Background(), uuid.New(), "a@x.com", "WIZARD")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestAcceptInvite_CreatesUserWithRole(t *testing.T) {
	t.Parallel()

	svc, sender, db := newTestInviteService(t)
	ctx := context.Background()

	_, rawToken, err := svc.CreateInvite(ctx, uuid.New(), "editor@x.com", "VIDEO_EDITOR")
	require.NoError(t, err)
	sender.waitForInvite(t)

	assignment, user, err := svc.AcceptInvite(ctx, &dto.AcceptInviteRequest{
		Token:    rawToken,
		Username: "editor",
		Password: "supersecret",
	})
	require.NoError(t, err)

	assert.Equal(t, "editor@x.com", user.Email)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, []string{"VIDEO_EDITOR"}, assignment.Roles)
	assert.NotEmpty(t, assignment.Token)

	// Role provisioning ran: the freelancer profile exists.
	var freelancer models.FreelancerProfile
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&freelancer).Error)

	var stored models.Invite
	require.NoError(t, db.Where("email = ?", "editor@x.com").First(&stored).Error)
	assert.NotNil(t, stored.AcceptedAt)
}

func TestAcceptInvite_RejectsReusedToken(t *testing.T) {
	t.Parallel()

	svc, sender, _ := newTestInviteService(t)
	ctx := context.Background()

	_, rawToken, err := svc.CreateInvite(ctx, uuid.New(), "editor@x.com", "CLIENT")
	require.NoError(t, err)
	sender.waitForInvite(t)

	_, _, err = svc.AcceptInvite(ctx, &dto.AcceptInviteRequest{Token: rawToken, Password: "supersecret"})
	require.NoError(t, err)

	_, _, err = svc.AcceptInvite(ctx, &dto.AcceptInviteRequest{Token: rawToken, Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInviteInvalid)
}

func TestAcceptInvite_RejectsExpiredInvite(t *testing.T) {
	t.Parallel()

	svc, sender, db := newTestInviteService(t)
	ctx := context.Background()

	invite, rawToken, err := svc.CreateInvite(ctx, uuid.New(), "late@x.com", "CLIENT")
	require.NoError(t, err)
	sender.waitForInvite(t)

	require.NoError(t, db.Model(&models.Invite{}).Where("id = ?", invite.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, _, err = svc.AcceptInvite(ctx, &dto.AcceptInviteRequest{Token: rawToken, Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInviteInvalid)
}

func TestAcceptInvite_RejectsUnknownToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestInviteService(t)
	_, _, err := svc.AcceptInvite(context.Background(), &dto.AcceptInviteRequest{
		Token:    "definitely-not-issued",
		Password: "supersecret",
	})
	assert.ErrorIs(t, err, ErrInviteInvalid)
}

func TestAcceptInvite_FailedGrantRollsBackUserAndInvite(t *testing.T) {
	t.Parallel()

	svc, _, db := newTestInviteService(t)
	ctx := context.Background()

	// An invite whose role was removed after issuance: the grant inside
	// acceptance fails and nothing must stick.
	rawToken := "stale-role-invite"
	invite := models.Invite{
		ID:        uuid.New(),
		Email:     "stale@x.com",
		RoleName:  "PRODUCER",
		TokenHash: hashToken(rawToken),
		InvitedBy: uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&invite).Error)

	_, _, err := svc.AcceptInvite(ctx, &dto.AcceptInviteRequest{Token: rawToken, Password: "supersecret"})
	assert.ErrorIs(t, err, ErrUnknownRole)

	var stored models.Invite
	require.NoError(t, db.First(&stored, "id = ?", invite.ID).Error)
	assert.Nil(t, stored.AcceptedAt)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "stale@x.com").Count(&users).Error)
	assert.Zero(t, users)
}

func TestAcceptInvite_RejectsTakenEmail(t *testing.T) {
	t.Parallel()

	svc, sender, db := newTestInviteService(t)
	ctx := context.Background()

	_, rawToken, err := svc.CreateInvite(ctx, uuid.New(), "taken@x.com", "CLIENT")
	require.NoError(t, err)
	sender.waitForInvite(t)

	existing := models.User{ID: uuid.New(), Email: "taken@x.com", Username: "whoever", IsActive: true}
	require.NoError(t, db.Create(&existing).Error)

	_, _, err = svc.AcceptInvite(ctx, &dto.AcceptInviteRequest{Token: rawToken, Password: "supersecret"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
