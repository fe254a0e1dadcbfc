package core

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"growvertising/pkg/domain"
)

// SubmitUpload appends a photo to the community wall. The caption is
// required; a missing location falls back to the sentinel default.
func (s *Service) SubmitUpload(ctx context.Context, author, imageRef, caption, location string) (Upload, Result, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return Upload{}, Result{}, domain.ValidationError{Field: "caption", Reason: "caption must not be empty"}
	}
	location = strings.TrimSpace(location)
	if location == "" {
		location = domain.DefaultLocation
	}

	var created Upload
	var res Result
	err := s.instrument(ctx, "submit_upload", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateUpload(domain.Upload{
				Author:   author,
				ImageRef: imageRef,
				Caption:  caption,
				Location: location,
			})
			return txErr
		})
		return created.ID, err
	})
	return created, res, err
}

// SubmitComment appends a comment to the community discussion.
func (s *Service) SubmitComment(ctx context.Context, author, text string) (Comment, Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, Result{}, domain.ValidationError{Field: "text", Reason: "comment must not be empty"}
	}
	if utf8.RuneCountInString(text) > domain.MaxCommentLength {
		return Comment{}, Result{}, domain.ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("comment exceeds %d characters", domain.MaxCommentLength),
		}
	}

	var created Comment
	var res Result
	err := s.instrument(ctx, "submit_comment", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateComment(domain.Comment{
				Author: author,
				Text:   text,
			})
			return txErr
		})
		return created.ID, err
	})
	return created, res, err
}

// LikeUpload increments the like counter of the upload addressed by id.
func (s *Service) LikeUpload(ctx context.Context, id string) (Upload, Result, error) {
	var updated Upload
	var res Result
	err := s.instrument(ctx, "like_upload", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateUpload(id, func(u *Upload) error {
				u.Likes++
				return nil
			})
			return txErr
		})
		return id, err
	})
	return updated, res, err
}

// LikeComment increments the like counter of the comment addressed by id.
func (s *Service) LikeComment(ctx context.Context, id string) (Comment, Result, error) {
	var updated Comment
	var res Result
	err := s.instrument(ctx, "like_comment", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateComment(id, func(c *Comment) error {
				c.Likes++
				return nil
			})
			return txErr
		})
		return id, err
	})
	return updated, res, err
}

// ListFeedUploads returns the photo wall, newest first.
func (s *Service) ListFeedUploads(ctx context.Context) ([]Upload, error) {
	var uploads []Upload
	err := s.store.View(ctx, func(view domain.RuleView) error {
		uploads = view.ListUploads()
		return nil
	})
	return uploads, err
}

// ListFeedComments returns the discussion feed, newest first.
func (s *Service) ListFeedComments(ctx context.Context) ([]Comment, error) {
	var comments []Comment
	err := s.store.View(ctx, func(view domain.RuleView) error {
		comments = view.ListComments()
		return nil
	})
	return comments, err
}
