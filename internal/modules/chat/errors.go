package chat

import "errors"

var ErrEmptyMessage = errors.New("message content is required")
