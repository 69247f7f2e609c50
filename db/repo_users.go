package db

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrBadCredentials = errors.New("invalid username or access key")

type UserInput struct {
	Username    string `json:"username" binding:"required,max=255"`
	DisplayName string `json:"displayName" binding:"max=255"`
	Email       string `json:"email" binding:"omitempty,email"`
	IsManager   bool   `json:"isManager"`
}

func newAccessKey() (string, string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	key := hex.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return key, string(hash), nil
}

// CreateUser registers a user and returns the one-time access key.
func (r *Repo) CreateUser(ctx context.Context, in UserInput) (*models.User, string, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if username == "" {
		return nil, "", lifecycle.Validationf("username is required")
	}
	if _, err := r.FindUserByUsername(ctx, username); err == nil {
		return nil, "", lifecycle.Validationf("username %q is taken", username)
	}
	key, hash, err := newAccessKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate access key: %w", err)
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = username
	}
	u := &models.User{
		ID:            uuid.NewString(),
		Username:      username,
		DisplayName:   display,
		Email:         in.Email,
		IsManager:     in.IsManager,
		AccessKeyHash: hash,
	}
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, "", fmt.Errorf("insert user: %w", err)
	}
	return u, key, nil
}

// ResetAccessKey replaces a user's key and returns the new one.
func (r *Repo) ResetAccessKey(ctx context.Context, userID string) (string, error) {
	if _, err := r.FindUserByID(ctx, userID); err != nil {
		return "", err
	}
	key, hash, err := newAccessKey()
	if err != nil {
		return "", fmt.Errorf("generate access key: %w", err)
	}
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("access_key_hash", hash).Error; err != nil {
		return "", err
	}
	return key, nil
}

// Authenticate checks a username/access key pair.
func (r *Repo) Authenticate(ctx context.Context, username, key string) (*models.User, error) {
	u, err := r.FindUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.AccessKeyHash), []byte(key)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

func (r *Repo) TouchUserLogin(ctx context.Context, userID string) error {
	now := r.now()
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"last_seen_at":  now,
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
		}).Error
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", r.now()).Error
}

func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return first[models.User](r.DB.WithContext(ctx), "user", id, false)
}

func (r *Repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) CountManagers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("is_manager = ?", true).
		Count(&n).Error
	return n, err
}

func (r *Repo) SetUserManager(ctx context.Context, userID string, isManager bool) error {
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_manager", isManager).Error
}

type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) ListUsers(ctx context.Context, q string, p, size int) (ListUsersResult, error) {
	p, size = page(p, size, 100)

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, err
	}

	var users []models.User
	if err := tx.
		Order("created_at DESC").
		Offset((p - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

// UserNames maps ids to display names, keeping the id when unknown.
func (r *Repo) UserNames(ctx context.Context, ids []string) []string {
	var users []models.User
	if len(ids) > 0 {
		if err := r.DB.WithContext(ctx).Select("id", "display_name").Where("id IN ?", ids).Find(&users).Error; err != nil {
			return ids
		}
	}
	byID := make(map[string]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.DisplayName
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		} else {
			out = append(out, id)
		}
	}
	return out
}

// Partners

type PartnerInput struct {
	Name      string `json:"name" binding:"required,max=255"`
	IsCompany bool   `json:"isCompany"`
	Email     string `json:"email" binding:"omitempty,email"`
}

func (r *Repo) CreatePartner(ctx context.Context, in PartnerInput) (*models.Partner, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, lifecycle.Validationf("partner name is required")
	}
	p := &models.Partner{ID: uuid.NewString(), Name: name, IsCompany: in.IsCompany, Email: in.Email}
	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("insert partner: %w", err)
	}
	return p, nil
}

func (r *Repo) ListPartners(ctx context.Context, companies *bool) ([]models.Partner, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Partner{})
	if companies != nil {
		tx = tx.Where("is_company = ?", *companies)
	}
	var ps []models.Partner
	err := tx.Order("name ASC").Find(&ps).Error
	return ps, err
}

// Messages

// ListMessages returns the history posted on one record, oldest first.
func (r *Repo) ListMessages(ctx context.Context, subjectType, subjectID string) ([]models.Message, error) {
	var ms []models.Message
	err := r.DB.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Order("created_at ASC").
		Find(&ms).Error
	return ms, err
}
