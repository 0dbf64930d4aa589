package app

import (
	"errors"

	"studymate/internal/ai"
	"studymate/internal/store"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrMessageEmpty = errors.New("message content is empty")
	ErrNoCategory   = errors.New("no category selected")
	ErrNoDocuments  = errors.New("upload study material to this category before starting a conversation")
	ErrCredential   = errors.New("missing or invalid api key")
	ErrCompletion   = errors.New("completion failed")
	ErrNoValidFiles = errors.New("no acceptable files in upload")

	ErrBusy                 = store.ErrBusy
	ErrCategoryNotFound     = store.ErrCategoryNotFound
	ErrConversationNotFound = store.ErrConversationNotFound
	ErrCancelled            = ai.ErrCancelled
)
