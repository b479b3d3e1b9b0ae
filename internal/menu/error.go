package menu

import "errors"

var (
	ErrItemNotFound    = errors.New("menu item not found")
	ErrItemUnavailable = errors.New("menu item is not available")
)
