package services

import (
	"errors"
	"fmt"
	"time"

	"blogpin-backend/models"

	"gorm.io/gorm"
)

// PinService is the pin registry: at most one pinned post per user, only
// while that user holds an active subscription and owns the published post.
type PinService struct {
	db   *gorm.DB
	subs *SubscriptionService
}

func NewPinService(db *gorm.DB, subs *SubscriptionService) *PinService {
	return &PinService{db: db, subs: subs}
}

// Pin points the user's featured slot at one of their published posts,
// silently replacing a previous pin. The delete-then-create pair runs in one
// transaction and the unique index on user_id backstops concurrent requests.
func (s *PinService) Pin(userID, postID string) (*models.PinnedPost, error) {
	var pin models.PinnedPost

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: post not found", ErrNotFound)
			}
			return err
		}

		if post.AuthorID != userID {
			return fmt.Errorf("%w: you can only pin your own post", ErrForbidden)
		}
		if post.Status != models.PostPublished {
			return fmt.Errorf("%w: only published posts can be pinned", ErrForbidden)
		}

		var sub models.Subscription
		err := tx.Where("user_id = ?", userID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !sub.IsCurrentlyActive()) {
			return ErrSubscriptionRequired
		}
		if err != nil {
			return err
		}

		var previous models.PinnedPost
		err = tx.Where("user_id = ?", userID).First(&previous).Error
		if err == nil {
			if err := tx.Delete(&previous).Error; err != nil {
				return err
			}
			if err := appendHistory(tx, sub.ID, models.HistoryPostUnpinned,
				"Post unpinned, replaced by a new pin",
				models.JSONMap{"post_id": previous.PostID}); err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		pin = models.PinnedPost{
			UserID:   userID,
			PostID:   post.ID,
			PinnedAt: time.Now(),
		}
		if err := tx.Create(&pin).Error; err != nil {
			return err
		}

		return appendHistory(tx, sub.ID, models.HistoryPostPinned,
			fmt.Sprintf("Post %q pinned", post.Title),
			models.JSONMap{"post_id": post.ID, "post_title": post.Title})
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Preload("Post").Preload("Post.Author").First(&pin, "id = ?", pin.ID).Error; err != nil {
		return nil, err
	}
	return &pin, nil
}

// Unpin empties the user's featured slot.
func (s *PinService) Unpin(userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var pin models.PinnedPost
		err := tx.Where("user_id = ?", userID).First(&pin).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no pinned post found", ErrNotFound)
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&pin).Error; err != nil {
			return err
		}

		sub, err := s.subs.CurrentSubscription(userID)
		if err != nil {
			return err
		}
		if sub != nil {
			return appendHistory(tx, sub.ID, models.HistoryPostUnpinned,
				"Post unpinned", models.JSONMap{"post_id": pin.PostID})
		}
		return nil
	})
}

// Current returns the user's pin or nil.
func (s *PinService) Current(userID string) (*models.PinnedPost, error) {
	var pin models.PinnedPost
	err := s.db.Preload("Post").Preload("Post.Author").Preload("Post.Category").
		Where("user_id = ?", userID).First(&pin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pin, nil
}

// ListActive returns pins whose owners are entitled right now. The sweep job
// is the authoritative remover, so this read path re-filters on end_date to
// never show a pin that lapsed between sweeps.
func (s *PinService) ListActive() ([]models.PinnedPost, error) {
	var pins []models.PinnedPost
	err := s.db.
		Joins("JOIN subscriptions ON subscriptions.user_id = pinned_posts.user_id").
		Joins("JOIN posts ON posts.id = pinned_posts.post_id").
		Where("subscriptions.status = ? AND subscriptions.end_date > ? AND posts.status = ?",
			models.SubscriptionActive, time.Now(), models.PostPublished).
		Preload("Post").Preload("Post.Author").Preload("Post.Category").
		Order("pinned_posts.pinned_at").
		Find(&pins).Error
	return pins, err
}

// CanPin builds the structured capability report the client renders before
// offering the pin action.
func (s *PinService) CanPin(userID, postID string) (*models.PinCapability, error) {
	report := &models.PinCapability{}

	var post models.Post
	err := s.db.First(&post, "id = ? AND status = ?", postID, models.PostPublished).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return report, fmt.Errorf("%w: post not found", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	report.PostExists = true
	report.IsOwnPost = post.AuthorID == userID

	sub, err := s.subs.CurrentSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		report.HasSubscription = true
		report.SubscriptionActive = sub.IsCurrentlyActive()
	}

	report.CanPin = report.IsOwnPost && report.HasSubscription && report.SubscriptionActive
	return report, nil
}
