package service

import (
	"context"
	"errors"
	"fmt"

	"vinyl-store/internal/storage"
)

type uploader struct {
	store     storage.Store
	maxUpload int64
}

// validate maps storage rejections to user-facing validation errors
func (u uploader) validate(file *storage.File) error {
	if err := storage.ValidateImage(file, u.maxUpload); err != nil {
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			return wrapCause(KindValidation, fmt.Sprintf("La imagen no puede superar los %dMB", u.maxUpload>>20), err)
		case errors.Is(err, storage.ErrUnsupportedImage):
			return wrapCause(KindValidation, "Solo se permiten imágenes jpg, jpeg o png", err)
		}
		return err
	}
	return nil
}

func (u uploader) upload(ctx context.Context, folder storage.Folder, file *storage.File) (string, error) {
	url, err := u.store.Upload(ctx, folder, file)
	if err != nil {
		return "", fmt.Errorf("failed to upload to %s: %w", folder, err)
	}
	return url, nil
}
