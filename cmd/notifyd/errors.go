package main

import "errors"

var errUnknownStorage = errors.New("unknown NOTIFY_STORAGE, want memory, postgres, redis or mongo")
