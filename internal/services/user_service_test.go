package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/pkg/crypto"
)

type revokeRecorder struct {
	revoked []string
}

func (r *revokeRecorder) RevokeUserSessions(_ context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

func newTestUserService(t *testing.T, db *gorm.DB) (*UserService, *revokeRecorder) {
	t.Helper()
	sessions := &revokeRecorder{}
	svc, err := NewUserService(db, newTestAudit(t, db), sessions, nil)
	require.NoError(t, err)
	return svc, sessions
}

func createRoot(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := createOperator(t, db, username)
	require.NoError(t, db.Model(&user).Update("is_root", true).Error)
	user.IsRoot = true
	return user
}

func TestUserService_CreateAndList(t *testing.T) {
	db := openSeededDB(t)
	root := createRoot(t, db, "root")
	svc, _ := newTestUserService(t, db)
	ctx := context.Background()

	user, err := svc.Create(ctx, root.ID, CreateUserInput{
		Username:    " alice ",
		Email:       "Alice@Example.com",
		Password:    "correct-horse",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.True(t, user.IsActive)
	require.False(t, user.IsRoot)
	require.True(t, crypto.VerifyPassword(user.Password, "correct-horse"))

	_, err = svc.Create(ctx, root.ID, CreateUserInput{Username: "alice", Email: "other@example.com", Password: "correct-horse"})
	requireAppError(t, err, "CONFLICT")

	_, err = svc.Create(ctx, root.ID, CreateUserInput{Username: "bob", Email: "bob@example.com", Password: "short"})
	requireAppError(t, err, "BAD_REQUEST")

	users, total, err := svc.List(ctx, ListUsersOptions{Query: "ALI"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, user.ID, users[0].ID)

	inactive := false
	_, total, err = svc.List(ctx, ListUsersOptions{IsActive: &inactive})
	require.NoError(t, err)
	require.Zero(t, total)

	users, total, err = svc.List(ctx, ListUsersOptions{PageSize: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, users, 1)

	var entries int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", "user.create").Count(&entries).Error)
	require.EqualValues(t, 3, entries)
}

func TestUserService_UpdateGuardsRootAndSelf(t *testing.T) {
	db := openSeededDB(t)
	root := createRoot(t, db, "root")
	member := createOperator(t, db, "member")
	svc, sessions := newTestUserService(t, db)
	ctx := context.Background()

	no := false
	yes := true

	_, err := svc.Update(ctx, root.ID, root.ID, UpdateUserInput{IsActive: &no})
	require.ErrorIs(t, err, ErrSelfModification)

	_, err = svc.Update(ctx, member.ID, root.ID, UpdateUserInput{IsRoot: &no})
	require.ErrorIs(t, err, ErrLastRootUser)

	promoted, err := svc.Update(ctx, root.ID, member.ID, UpdateUserInput{IsRoot: &yes, DisplayName: stringPtr(" Member ")})
	require.NoError(t, err)
	require.True(t, promoted.IsRoot)
	require.Equal(t, "Member", promoted.DisplayName)

	// With a second root the first may be demoted.
	demoted, err := svc.Update(ctx, member.ID, root.ID, UpdateUserInput{IsRoot: &no})
	require.NoError(t, err)
	require.False(t, demoted.IsRoot)

	deactivated, err := svc.Update(ctx, member.ID, root.ID, UpdateUserInput{IsActive: &no})
	require.NoError(t, err)
	require.False(t, deactivated.IsActive)
	require.Equal(t, []string{root.ID}, sessions.revoked)

	_, err = svc.Update(ctx, root.ID, member.ID, UpdateUserInput{Email: stringPtr("  ")})
	requireAppError(t, err, "BAD_REQUEST")

	_, err = svc.Update(ctx, root.ID, "missing", UpdateUserInput{})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_DeleteRemovesOwnedData(t *testing.T) {
	db := openSeededDB(t)
	root := createRoot(t, db, "root")
	member := createOperator(t, db, "member")
	svc, _ := newTestUserService(t, db)
	ctx := context.Background()

	notes, err := NewNoteService(db, nil)
	require.NoError(t, err)
	_, err = notes.Create(ctx, member.ID, CreateNoteInput{Title: "todo"})
	require.NoError(t, err)
	folder := models.MenuItem{UserID: member.ID, Label: stringPtr("Folder"), IsFolder: true}
	require.NoError(t, db.Create(&folder).Error)
	require.NoError(t, db.Create(&models.MenuItem{UserID: member.ID, ParentID: &folder.ID, Label: stringPtr("Nested"), IsFolder: true}).Error)

	require.ErrorIs(t, svc.Delete(ctx, root.ID, root.ID), ErrSelfModification)
	require.ErrorIs(t, svc.Delete(ctx, root.ID, "missing"), ErrUserNotFound)

	require.NoError(t, svc.Delete(ctx, root.ID, member.ID))

	var count int64
	require.NoError(t, db.Model(&models.Note{}).Where("user_id = ?", member.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.MenuItem{}).Where("user_id = ?", member.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", member.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestUserService_DeleteDropsCachedMenu(t *testing.T) {
	db := openSeededDB(t)
	root := createRoot(t, db, "root")
	member := createOperator(t, db, "member")
	audit := newTestAudit(t, db)
	ctx := context.Background()

	menu, err := NewMenuService(db, audit, MenuConfig{})
	require.NoError(t, err)
	svc, err := NewUserService(db, audit, nil, menu)
	require.NoError(t, err)

	_, err = menu.AddToolToMenu(ctx, member.ID, models.ToolID("uuid-generator"), nil)
	require.NoError(t, err)
	tree, err := menu.GetMenuItems(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	require.NoError(t, svc.Delete(ctx, root.ID, member.ID))

	tree, err = menu.GetMenuItems(ctx, member.ID)
	require.NoError(t, err)
	require.Empty(t, tree)
}

func TestUserService_DeleteLastRootRefused(t *testing.T) {
	db := openSeededDB(t)
	root := createRoot(t, db, "root")
	other := createOperator(t, db, "other")
	svc, _ := newTestUserService(t, db)

	require.ErrorIs(t, svc.Delete(context.Background(), other.ID, root.ID), ErrLastRootUser)
}

func TestUserService_ChangePassword(t *testing.T) {
	db := openSeededDB(t)
	svc, sessions := newTestUserService(t, db)
	ctx := context.Background()

	user, err := svc.Create(ctx, "", CreateUserInput{Username: "carol", Email: "carol@example.com", Password: "initial-pass"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "wrong-pass", "replacement"), ErrCurrentPassword)
	requireAppError(t, svc.ChangePassword(ctx, user.ID, "initial-pass", "short"), "BAD_REQUEST")
	require.Empty(t, sessions.revoked)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "initial-pass", "replacement"))
	require.Equal(t, []string{user.ID}, sessions.revoked)

	reloaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(reloaded.Password, "replacement"))
}
