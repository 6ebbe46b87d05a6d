package rbac

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelConf string

// Actions and objects used in policies.
const (
	ActionAdmin  = "admin"
	ActionDelete = "delete"

	objectAdmin    = "admin"
	objectAllPosts = "post:*"
)

// ErrNotInitialized is returned when a check runs before InitEnforcer.
var ErrNotInitialized = errors.New("rbac enforcer not initialized")

var enforcer *casbin.Enforcer

// InitEnforcer initializes the Casbin enforcer
func InitEnforcer(db *gorm.DB, logger *slog.Logger) error {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := e.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	enforcer = e
	logger.Info("RBAC enforcer initialized")
	return nil
}

func postObject(postID uuid.UUID) string {
	return "post:" + postID.String()
}

// IsAdmin checks if user has admin privileges
func IsAdmin(userID uuid.UUID) (bool, error) {
	if enforcer == nil {
		return false, ErrNotInitialized
	}
	return enforcer.Enforce(userID.String(), objectAdmin, ActionAdmin)
}

// CanDeletePost checks if user may delete the post: its author or an admin.
func CanDeletePost(userID, postID uuid.UUID) (bool, error) {
	if enforcer == nil {
		return false, ErrNotInitialized
	}
	return enforcer.Enforce(userID.String(), postObject(postID), ActionDelete)
}

// GrantPostOwnership records the author of a newly created post.
func GrantPostOwnership(userID, postID uuid.UUID) error {
	return addPolicies([][]string{{userID.String(), postObject(postID), ActionDelete}})
}

// RevokePostPolicies removes every policy that refers to the post.
func RevokePostPolicies(postID uuid.UUID) error {
	if enforcer == nil {
		return ErrNotInitialized
	}
	if _, err := enforcer.RemoveFilteredPolicy(1, postObject(postID)); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// MakeAdmin grants admin privileges to a user, including deletion of any post
func MakeAdmin(userID uuid.UUID) error {
	return addPolicies([][]string{
		{userID.String(), objectAdmin, ActionAdmin},
		{userID.String(), objectAllPosts, ActionDelete},
	})
}

// RevokeAdmin removes admin privileges from a user
func RevokeAdmin(userID uuid.UUID) error {
	if enforcer == nil {
		return ErrNotInitialized
	}
	if _, err := enforcer.RemovePolicies([][]string{
		{userID.String(), objectAdmin, ActionAdmin},
		{userID.String(), objectAllPosts, ActionDelete},
	}); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

func addPolicies(rules [][]string) error {
	if enforcer == nil {
		return ErrNotInitialized
	}
	for _, rule := range rules {
		if has, _ := enforcer.HasPolicy(rule); has {
			continue
		}
		if _, err := enforcer.AddPolicy(rule); err != nil {
			return err
		}
	}
	return enforcer.SavePolicy()
}
