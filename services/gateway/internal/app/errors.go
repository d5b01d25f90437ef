package app

import (
	"errors"
	"time"
)

var (
	ErrItemNotFound   = errors.New("upload item not found")
	ErrItemNotPending = errors.New("only pending items can be removed")
	ErrUploadBusy     = errors.New("an upload is already in progress")
	ErrUnknownConnect = errors.New("unknown connect kind")
	ErrSessionEnded   = errors.New("session has ended")
)

// DefaultSweepInterval is how often expired sessions release their workspaces.
const DefaultSweepInterval = time.Minute

// SettingsSavedMessage is the toast shown after saving settings.
const SettingsSavedMessage = "Settings saved successfully!"
