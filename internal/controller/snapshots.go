package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
	"github.com/dgnsrekt/tz_agent/internal/snapshot"
	"github.com/google/uuid"
)

// TakeSnapshot captures the TradeZero tab and stores it with the current
// order-form symbol.
func (s *Service) TakeSnapshot(ctx context.Context, format string, quality int, fullPage bool, notes string) (snapshot.SnapshotMeta, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "jpeg" {
		return snapshot.SnapshotMeta{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "format must be \"png\" or \"jpeg\""}
	}
	if quality < 0 || quality > 100 {
		return snapshot.SnapshotMeta{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "quality must be between 0 and 100"}
	}

	var (
		imageData []byte
		info      cdpcontrol.PageInfo
		symbol    string
	)
	err := s.act(ctx, func(ctx context.Context) error {
		var err error
		imageData, err = s.page.Screenshot(ctx, format, quality, fullPage)
		if err != nil {
			return err
		}
		if info, err = s.page.PageInfo(ctx); err != nil {
			slog.Debug("snapshot page info unavailable", "error", err)
		}
		if symbol, err = s.tz.CurrentSymbol(ctx); err != nil {
			slog.Debug("snapshot symbol unavailable", "error", err)
		}
		return nil
	})
	if err != nil {
		return snapshot.SnapshotMeta{}, err
	}

	meta := snapshot.SnapshotMeta{
		ID:        uuid.New().String(),
		Format:    format,
		SizeBytes: len(imageData),
		CreatedAt: s.now().UTC(),
		URL:       info.URL,
		Title:     info.Title,
		Symbol:    symbol,
		FullPage:  fullPage,
		Notes:     strings.TrimSpace(notes),
	}
	if err := s.snaps.Save(meta, imageData); err != nil {
		return snapshot.SnapshotMeta{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: fmt.Sprintf("save snapshot: %v", err)}
	}
	slog.Info("snapshot saved", "id", meta.ID, "format", format, "bytes", meta.SizeBytes, "symbol", symbol)
	return meta, nil
}

// ListSnapshots returns snapshots newest first, optionally only those taken
// with symbol on the order form.
func (s *Service) ListSnapshots(ctx context.Context, symbol string, limit int) ([]snapshot.SnapshotMeta, error) {
	if limit < 0 {
		return nil, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "limit must not be negative"}
	}
	metas, err := s.snaps.List(snapshot.Filter{Symbol: symbol, Limit: limit})
	if err != nil {
		return nil, snapshotError(err)
	}
	return metas, nil
}

func (s *Service) GetSnapshot(ctx context.Context, id string) (snapshot.SnapshotMeta, error) {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return snapshot.SnapshotMeta{}, err
	}
	meta, err := s.snaps.Get(strings.TrimSpace(id))
	if err != nil {
		return snapshot.SnapshotMeta{}, snapshotError(err)
	}
	return meta, nil
}

func (s *Service) ReadSnapshotImage(ctx context.Context, id string) ([]byte, string, error) {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return nil, "", err
	}
	data, format, err := s.snaps.ReadImage(strings.TrimSpace(id))
	if err != nil {
		return nil, "", snapshotError(err)
	}
	return data, format, nil
}

func (s *Service) DeleteSnapshot(ctx context.Context, id string) error {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return err
	}
	if err := s.snaps.Delete(strings.TrimSpace(id)); err != nil {
		return snapshotError(err)
	}
	return nil
}

func snapshotError(err error) error {
	switch {
	case errors.Is(err, snapshot.ErrInvalidID):
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: err.Error()}
	case errors.Is(err, snapshot.ErrNotFound):
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeSnapshotNotFound, Message: err.Error()}
	}
	return &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: err.Error(), Cause: err}
}
