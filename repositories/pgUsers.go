package repositories

import (
	"context"
	"errors"
	"strings"

	"todo-server/db"
	"todo-server/entities"

	"gorm.io/gorm"
)

type userPgRepository struct {
	db db.Database
}

func NewUserPgRepository(database db.Database) UserRepository {
	return &userPgRepository{db: database}
}

func (r *userPgRepository) Create(ctx context.Context, user *entities.User) error {
	return translate(r.db.Conn(ctx).Omit("TodoItems").Create(user).Error)
}

func (r *userPgRepository) GetByID(ctx context.Context, id uint64) (*entities.User, error) {
	return r.firstWhere(ctx, "id = ?", id)
}

func (r *userPgRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.firstWhere(ctx, "username = ?", username)
}

// GetByUsernameOrEmail resolves a login string. A login containing "@" is
// tried as an email first, anything else as a username first.
func (r *userPgRepository) GetByUsernameOrEmail(ctx context.Context, login string) (*entities.User, error) {
	first, second := "username = ?", "email = ?"
	if strings.Contains(login, "@") {
		first, second = second, first
	}
	user, err := r.firstWhere(ctx, first, login)
	if !errors.Is(err, ErrNotFound) {
		return user, err
	}
	return r.firstWhere(ctx, second, login)
}

func (r *userPgRepository) firstWhere(ctx context.Context, query string, arg interface{}) (*entities.User, error) {
	var user entities.User
	if err := r.db.Conn(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userPgRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.Conn(ctx).Model(&entities.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, translate(err)
}

func (r *userPgRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.Conn(ctx).Model(&entities.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, translate(err)
}

// Delete removes the user; todo_items rows go with it through the
// ON DELETE CASCADE foreign key.
func (r *userPgRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.Conn(ctx).Where("id = ?", id).Delete(&entities.User{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BumpSessionVersion invalidates every session token issued to the user.
func (r *userPgRepository) BumpSessionVersion(ctx context.Context, id uint64) error {
	result := r.db.Conn(ctx).Model(&entities.User{}).Where("id = ?", id).
		UpdateColumn("session_version", gorm.Expr("session_version + ?", 1))
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
