package svc

import "errors"

// ErrStorageInitFailed wraps any failure while opening the cache stores.
var ErrStorageInitFailed = errors.New("storage initialization failed")
