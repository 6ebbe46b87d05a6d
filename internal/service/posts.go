package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/qworpa/qworpa/internal/audit"
	"github.com/qworpa/qworpa/internal/models"
	"github.com/qworpa/qworpa/internal/rbac"
	"github.com/qworpa/qworpa/internal/routing"
	"gorm.io/gorm"
)

const maxTitleLength = 200

// PostService contains the business logic for posts and likes.
type PostService struct {
	db *gorm.DB
}

// NewPostService creates a new PostService.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// Create stores a new post and grants its author delete rights.
func (s *PostService) Create(ctx context.Context, req CreatePostRequest, authorID uuid.UUID) (*models.Post, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &ValidationError{Message: "title is required"}
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, &ValidationError{Message: fmt.Sprintf("title must be at most %d characters", maxTitleLength)}
	}

	post := models.Post{
		AuthorID: authorID,
		Title:    title,
		Body:     req.Body,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	// The author check in Delete does not depend on this policy.
	if err := rbac.GrantPostOwnership(authorID, post.ID); err != nil {
		slog.Warn("Failed to grant post ownership", "url_hex", post.URLHex, "author_id", authorID, "error", err)
	}

	audit.Record(ctx, s.db, authorID, audit.ActionCreatePost, audit.PostResource(post.URLHex), map[string]any{
		"title": post.Title,
	})

	return &post, nil
}

// Get returns a post by its public identifier.
func (s *PostService) Get(ctx context.Context, urlHex string) (*models.Post, error) {
	if err := validateURLHex(urlHex); err != nil {
		return nil, err
	}
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("Author").Where("url_hex = ?", strings.ToLower(urlHex)).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// ToggleLike likes the post for the user, or removes the like if it exists.
// The stored like count is recomputed in the same transaction.
func (s *PostService) ToggleLike(ctx context.Context, urlHex string, userID uuid.UUID) (*LikeResult, error) {
	if err := validateURLHex(urlHex); err != nil {
		return nil, err
	}

	var post models.Post
	result := &LikeResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("url_hex = ?", strings.ToLower(urlHex)).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		del := tx.Where("post_id = ? AND user_id = ?", post.ID, userID).Delete(&models.PostLike{})
		if del.Error != nil {
			return fmt.Errorf("remove like: %w", del.Error)
		}
		if del.RowsAffected == 0 {
			if err := tx.Create(&models.PostLike{PostID: post.ID, UserID: userID}).Error; err != nil {
				return fmt.Errorf("add like: %w", err)
			}
			result.Liked = true
		}

		if err := tx.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&result.LikeCount).Error; err != nil {
			return fmt.Errorf("count likes: %w", err)
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("like_count", result.LikeCount).Error
	})
	if err != nil {
		return nil, err
	}

	action := audit.ActionUnlikePost
	if result.Liked {
		action = audit.ActionLikePost
	}
	audit.Record(ctx, s.db, userID, action, audit.PostResource(post.URLHex), map[string]any{
		"like_count": result.LikeCount,
	})
	slog.Debug("Post like toggled", "url_hex", post.URLHex, "user_id", userID, "liked", result.Liked)

	return result, nil
}

// Delete soft-deletes the post and removes its likes. Only the author or an
// admin may delete a post.
func (s *PostService) Delete(ctx context.Context, urlHex string, userID uuid.UUID) error {
	if err := validateURLHex(urlHex); err != nil {
		return err
	}

	var post models.Post
	if err := s.db.WithContext(ctx).Where("url_hex = ?", strings.ToLower(urlHex)).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	allowed := post.AuthorID == userID
	if !allowed {
		ok, err := rbac.CanDeletePost(userID, post.ID)
		if err != nil {
			return fmt.Errorf("check delete permission: %w", err)
		}
		allowed = ok
	}
	if !allowed {
		return &ForbiddenError{Message: "you can only delete your own posts"}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostLike{}).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Delete(&post).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := rbac.RevokePostPolicies(post.ID); err != nil {
		slog.Warn("Failed to revoke post policies", "url_hex", post.URLHex, "error", err)
	}

	audit.Record(ctx, s.db, userID, audit.ActionDeletePost, audit.PostResource(post.URLHex), map[string]any{
		"title":     post.Title,
		"author_id": post.AuthorID.String(),
	})

	return nil
}

func validateURLHex(urlHex string) error {
	if !routing.IsHex(urlHex) || len(urlHex) > 2*models.URLHexBytes {
		return &ValidationError{Message: "url_hex must be a hexadecimal post identifier"}
	}
	return nil
}
