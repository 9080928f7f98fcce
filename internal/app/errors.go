package service

import "errors"

// ErrNotConfigured is returned by Run when a required component is missing.
var ErrNotConfigured = errors.New("service is missing a workbook or grader")
