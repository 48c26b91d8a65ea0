package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/BrettBuhler/task-stack/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert finds a user by email and refreshes the name, or creates the user
// with a fresh API token.
func (r *UserRepository) Upsert(ctx context.Context, email, name string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if name != "" && name != user.Name {
			if err := db.Model(&user).Update("name", name).Error; err != nil {
				return nil, wrap("update user", err)
			}
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{Email: email, Name: name}
		if err := db.Create(&user).Error; err != nil {
			return nil, wrap("create user", err)
		}
		return &user, nil
	default:
		return nil, wrap("find user", err)
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findBy(ctx, "find user", "id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, "find user by email", "email = ?", email)
}

func (r *UserRepository) FindByToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, notFound("find user by token")
	}
	return r.findBy(ctx, "find user by token", "api_token = ?", token)
}

func (r *UserRepository) FindByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	return r.findBy(ctx, "find user by chat", "telegram_chat_id = ?", chatID)
}

func (r *UserRepository) findBy(ctx context.Context, op, query string, arg interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, wrap(op, err)
	}
	return &user, nil
}

// LinkTelegram attaches a chat to the user. Linking resets a previous denial
// back to undecided so the user can be asked again.
func (r *UserRepository) LinkTelegram(ctx context.Context, userID string, chatID int64) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"telegram_chat_id":  chatID,
		"notify_permission": model.PermissionDefault,
	})
	if res.Error != nil {
		return wrap("link telegram", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("link telegram")
	}
	return nil
}

func (r *UserRepository) SetNotifyPermission(ctx context.Context, userID string, perm model.Permission) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("notify_permission", perm)
	if res.Error != nil {
		return wrap("set notify permission", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("set notify permission")
	}
	return nil
}
