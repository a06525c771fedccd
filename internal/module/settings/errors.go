package settings

import "errors"

// Module errors.
var (
	ErrSettingNotFound = errors.New("setting not found")
)
