package services

import (
	"context"
	"encoding/json"
	"testing"

	"student-services/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type adminFixture struct {
	db         *gorm.DB
	svc        *AdminService
	cache      *fakeInvalidator
	superAdmin *models.User
	admin      *models.User
	student    *models.User
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	db := openTestDB(t)
	inv := &fakeInvalidator{}
	return &adminFixture{
		db:         db,
		cache:      inv,
		svc:        NewAdminService(db, NewNotificationService(db, NotificationOptions{}), inv),
		superAdmin: createUser(t, db, "+77020000001", models.RoleSuperAdmin, 0),
		admin:      createUser(t, db, "+77020000002", models.RoleAdmin, 0),
		student:    createUser(t, db, "+77020000003", models.RoleUser, 100),
	}
}

func TestChangeRoleBySuperAdmin(t *testing.T) {
	f := newAdminFixture(t)

	u, err := f.svc.ChangeRole(context.Background(), f.superAdmin.ID, f.student.ID, models.RoleAdmin, "new operator")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, models.RoleAdmin, reloadUser(t, f.db, f.student.ID).Role)
	assert.Equal(t, []uint{f.student.ID}, f.cache.ids)

	var action models.AdminAction
	require.NoError(t, f.db.Where("action_type = ?", models.ActionRoleChange).First(&action).Error)
	var details map[string]string
	require.NoError(t, json.Unmarshal(action.Details, &details))
	assert.Equal(t, models.RoleUser, details["from"])
	assert.Equal(t, models.RoleAdmin, details["to"])
	assert.Equal(t, "new operator", action.Reason)
	assert.Equal(t, int64(1), countRows(t, f.db, &models.Notification{}, "user_id = ?", f.student.ID))
}

func TestChangeRoleRules(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.ChangeRole(ctx, f.admin.ID, f.student.ID, models.RoleAdmin, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ChangeRole(ctx, f.superAdmin.ID, f.superAdmin.ID, models.RoleUser, "")
	assert.ErrorIs(t, err, ErrSelfRoleChange)

	_, err = f.svc.ChangeRole(ctx, f.superAdmin.ID, f.student.ID, "Owner", "")
	assert.True(t, IsValidation(err))

	_, err = f.svc.ChangeRole(ctx, f.superAdmin.ID, 999, models.RoleAdmin, "")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, countRows(t, f.db, &models.AdminAction{}, ""))
}

func TestChangeRoleToSameRoleIsNoop(t *testing.T) {
	f := newAdminFixture(t)
	_, err := f.svc.ChangeRole(context.Background(), f.superAdmin.ID, f.admin.ID, models.RoleAdmin, "")
	require.NoError(t, err)
	assert.Zero(t, countRows(t, f.db, &models.AdminAction{}, ""))
	assert.Empty(t, f.cache.ids)
}

func TestAdjustBalance(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	u, err := f.svc.AdjustBalance(ctx, f.admin.ID, f.student.ID, 250, "bonus")
	require.NoError(t, err)
	assert.Equal(t, int64(350), u.Balance)

	u, err = f.svc.AdjustBalance(ctx, f.admin.ID, f.student.ID, -350, "refund")
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.Balance)

	_, err = f.svc.AdjustBalance(ctx, f.admin.ID, f.student.ID, -1, "overdraft")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(0), reloadUser(t, f.db, f.student.ID).Balance)

	assert.Equal(t, int64(2), countRows(t, f.db, &models.AdminAction{}, "action_type = ?", models.ActionBalanceAdjustment))
	assert.Equal(t, int64(2), countRows(t, f.db, &models.OutboxEvent{}, "topic = ?", TopicBalanceAdjusted))
}

func TestAdjustBalanceValidation(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.AdjustBalance(ctx, f.admin.ID, f.student.ID, 0, "reason")
	assert.True(t, IsValidation(err))

	_, err = f.svc.AdjustBalance(ctx, f.admin.ID, f.student.ID, 10, "  ")
	assert.True(t, IsValidation(err))

	_, err = f.svc.AdjustBalance(ctx, f.student.ID, f.admin.ID, 10, "self service")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSetBlocked(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	u, err := f.svc.SetBlocked(ctx, f.admin.ID, f.student.ID, true, "spam")
	require.NoError(t, err)
	assert.True(t, u.IsBlocked)
	assert.True(t, reloadUser(t, f.db, f.student.ID).IsBlocked)
	assert.Equal(t, []uint{f.student.ID}, f.cache.ids)

	_, err = f.svc.SetBlocked(ctx, f.admin.ID, f.superAdmin.ID, true, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.SetBlocked(ctx, f.admin.ID, f.admin.ID, true, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListActionsFilters(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	_, err := f.svc.AdjustBalance(ctx, f.admin.ID, f.student.ID, 10, "bonus")
	require.NoError(t, err)
	_, err = f.svc.SetBlocked(ctx, f.superAdmin.ID, f.admin.ID, true, "")
	require.NoError(t, err)

	actions, total, err := f.svc.ListActions(ctx, ActionFilter{TargetUserID: f.student.ID}, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, actions, 1)
	assert.Equal(t, f.admin.ID, actions[0].Admin.ID)

	_, total, err = f.svc.ListActions(ctx, ActionFilter{ActionType: models.ActionUserBlocked}, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
