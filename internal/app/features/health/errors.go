package health

import "errors"

var errNoDatabase = errors.New("no database configured")
