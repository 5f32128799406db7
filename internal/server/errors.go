package server

import "errors"

var (
	errLoginRequired = errors.New("first message must be LOGIN")
	errJoinTimeout   = errors.New("join timed out")
)
